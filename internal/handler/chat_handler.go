// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"chatbot-go/internal/middleware"
	"chatbot-go/internal/service"
	"chatbot-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// homePage 是入口表单。沿用内联 HTML，不引入模板引擎。
const homePage = `<!DOCTYPE html>
<html>
<head><title>Chatbot</title></head>
<body>
  <h2>Chatbot</h2>
  <form action="/chat" method="post">
    <input type="text" name="message" placeholder="Type your message" autofocus>
    <button type="submit">Send</button>
  </form>
  <p><a href="/history">View conversation history</a></p>
</body>
</html>`

// ChatHandler 处理聊天相关的 HTTP 请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Home 渲染入口表单页。
func (h *ChatHandler) Home(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, homePage)
}

// Chat 处理表单提交：转发给应答流程并以内联 HTML 返回结果。
// 空消息不处理，直接重定向回入口表单。
func (h *ChatHandler) Chat(c *gin.Context) {
	userInput := strings.TrimSpace(c.PostForm("message"))
	if userInput == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	sessionID := c.GetString(middleware.SessionIDKey)

	answer, err := h.chatService.Respond(c.Request.Context(), sessionID, userInput)
	if err != nil {
		log.Error("应答流程失败", err)
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusInternalServerError, "<p>Something went wrong. Please try again.</p>")
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, fmt.Sprintf(
		`<p><b>You:</b> %s</p>
<p><b>Chatbot:</b> %s</p>
<p><a href="/">Ask another question</a> | <a href="/history">History</a></p>`,
		html.EscapeString(userInput),
		html.EscapeString(answer.Text),
	))
}

// ChatAPI 是表单端点的 JSON 镜像，响应携带检测到的语言标签。
func (h *ChatHandler) ChatAPI(c *gin.Context) {
	var payload struct {
		Message string `json:"message" form:"message"`
	}
	if err := c.ShouldBind(&payload); err != nil || strings.TrimSpace(payload.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "message is required",
			"data":    nil,
		})
		return
	}
	sessionID := c.GetString(middleware.SessionIDKey)

	answer, err := h.chatService.Respond(c.Request.Context(), sessionID, strings.TrimSpace(payload.Message))
	if err != nil {
		log.Error("应答流程失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "failed to resolve response",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    answer,
	})
}
