// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"solar-assistant-go/internal/middleware"
	"solar-assistant-go/internal/service"
	"solar-assistant-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// TranscriptHandler 处理与会话对话记录相关的 API 请求。
type TranscriptHandler struct {
	service service.TranscriptService
}

// NewTranscriptHandler 创建一个新的 TranscriptHandler。
func NewTranscriptHandler(service service.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{service: service}
}

// GetHistory 处理获取当前会话历史的请求。
func (h *TranscriptHandler) GetHistory(c *gin.Context) {
	entries, err := h.service.Entries(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		log.Errorf("GetHistory: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to retrieve chat history",
			"data":    nil,
		})
		return
	}

	message := "success"
	if len(entries) == 0 {
		message = "No previous chat history available."
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": message,
		"data":    entries,
	})
}

// ClearHistory 处理清空当前会话历史的请求。
func (h *TranscriptHandler) ClearHistory(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context(), middleware.SessionID(c)); err != nil {
		log.Errorf("ClearHistory: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to clear chat history",
			"data":    nil,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "Chat cleared", "data": nil})
}
