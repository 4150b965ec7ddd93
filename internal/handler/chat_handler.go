// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"solar-assistant-go/internal/config"
	"solar-assistant-go/internal/middleware"
	"solar-assistant-go/internal/service"
	"solar-assistant-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// ChatHandler 负责处理聊天请求与 WebSocket 连接。
type ChatHandler struct {
	chatService service.ChatService
	assistant   config.AssistantConfig
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, assistant config.AssistantConfig) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		assistant:   assistant,
	}
}

// AskRequest 定义了提问 API 的请求体结构。
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// Info 返回界面需要的标题与输入框提示。
func (h *ChatHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"title":       h.assistant.Title,
			"placeholder": h.assistant.Placeholder,
		},
	})
}

// Ask 处理一次同步提问。
func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Ask: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：question 不能为空", "data": nil})
		return
	}

	turn, err := h.chatService.Ask(c.Request.Context(), middleware.SessionID(c), req.Question)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuestion) {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "question 不能为空", "data": nil})
			return
		}
		log.Errorf("Ask: 处理提问失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "处理提问失败", "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": turn})
}

// Handle 处理一个传入的 WebSocket 连接，每个文本帧是一个问题。
func (h *ChatHandler) Handle(c *gin.Context) {
	sessionID := middleware.SessionID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，会话: %s", sessionID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		_, err = h.chatService.StreamAnswer(c.Request.Context(), sessionID, string(message), conn)
		if err == nil {
			continue
		}
		if errors.Is(err, service.ErrEmptyQuestion) {
			writeError(conn, "问题不能为空")
			continue
		}
		log.Errorf("处理流式响应失败: %v", err)
		writeError(conn, "AI服务暂时不可用，请稍后重试")
		break
	}
}

func writeError(conn *websocket.Conn, msg string) {
	b, _ := json.Marshal(map[string]string{"error": msg})
	_ = conn.WriteMessage(websocket.TextMessage, b)
}
