package handler

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"chatbot-go/internal/middleware"
	"chatbot-go/internal/model"
	"chatbot-go/internal/service"
	"chatbot-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 处理与对话历史相关的请求。
type HistoryHandler struct {
	historyService service.HistoryService
}

// NewHistoryHandler 创建一个新的 HistoryHandler。
func NewHistoryHandler(historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// turnDTO 是历史记录的外部表示。
type turnDTO struct {
	Question  string           `json:"question"`
	Answer    string           `json:"answer"`
	Language  string           `json:"language,omitempty"`
	Timestamp *model.LocalTime `json:"timestamp"`
}

func toDTO(turn model.ChatTurn) turnDTO {
	dto := turnDTO{
		Question: turn.UserInput,
		Answer:   turn.BotResponse,
		Language: turn.Language,
	}
	if turn.Timestamp != nil {
		lt := model.LocalTime(*turn.Timestamp)
		dto.Timestamp = &lt
	}
	return dto
}

// History 以 HTML 表格展示当前会话的全部对话，按时间升序。
func (h *HistoryHandler) History(c *gin.Context) {
	sessionID := c.GetString(middleware.SessionIDKey)
	turns, err := h.historyService.ListTurns(c.Request.Context(), sessionID)
	if err != nil {
		log.Error("获取历史记录失败", err)
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusInternalServerError, "<p>Something went wrong. Please try again.</p>")
		return
	}

	var b strings.Builder
	b.WriteString(`<h2>Conversation history</h2>`)
	if len(turns) == 0 {
		b.WriteString(`<p>No conversation yet.</p>`)
	} else {
		b.WriteString(`<table border="1" cellpadding="4"><tr><th>Time</th><th>You</th><th>Chatbot</th></tr>`)
		for _, turn := range turns {
			ts := ""
			if turn.Timestamp != nil {
				ts = model.LocalTime(*turn.Timestamp).String()
			}
			b.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%s</td></tr>",
				html.EscapeString(ts),
				html.EscapeString(turn.UserInput),
				html.EscapeString(turn.BotResponse),
			))
		}
		b.WriteString(`</table>`)
	}
	b.WriteString(`<p><a href="/">Back to chat</a></p>`)

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

// HistoryAPI 以 JSON 返回当前会话的全部对话，按时间升序。
func (h *HistoryHandler) HistoryAPI(c *gin.Context) {
	sessionID := c.GetString(middleware.SessionIDKey)
	turns, err := h.historyService.ListTurns(c.Request.Context(), sessionID)
	if err != nil {
		log.Error("获取历史记录失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "failed to retrieve history",
			"data":    nil,
		})
		return
	}

	dtos := make([]turnDTO, 0, len(turns))
	for _, turn := range turns {
		dtos = append(dtos, toDTO(turn))
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    dtos,
	})
}
