// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"chatbot-go/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionIDKey 是会话标识在 gin.Context 中的键名。
const SessionIDKey = "sessionID"

// Session 维护浏览器会话标识：没有 Cookie 时生成一个随机令牌，
// 并且在每次响应中都重新下发以刷新过期时间。令牌是不透明的，
// 仅用于把同一浏览器的多轮对话串起来。
func Session(cfg config.SessionConfig) gin.HandlerFunc {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "chat_session"
	}
	ttlDays := cfg.TTLDays
	if ttlDays <= 0 {
		ttlDays = 7
	}
	maxAge := ttlDays * 24 * 60 * 60

	return func(c *gin.Context) {
		sid, err := c.Cookie(cookieName)
		if err != nil || sid == "" {
			sid = uuid.NewString()
		}
		// 每次响应都延长过期时间
		c.SetCookie(cookieName, sid, maxAge, "/", "", false, true)
		c.Set(SessionIDKey, sid)
		c.Next()
	}
}
