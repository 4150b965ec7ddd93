// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"solar-assistant-go/internal/service"
	"solar-assistant-go/pkg/log"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理管理员查询归档的 API 请求。
type AdminHandler struct {
	archiveService service.ArchiveService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(archiveService service.ArchiveService) *AdminHandler {
	return &AdminHandler{archiveService: archiveService}
}

// ListTurns 返回归档的问答记录，可按 sessionId 过滤。
func (h *AdminHandler) ListTurns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "limit 必须是整数", "data": nil})
			return
		}
		limit = parsed
	}

	turns, err := h.archiveService.ListRecent(c.Request.Context(), c.Query("sessionId"), limit)
	if err != nil {
		if errors.Is(err, service.ErrArchiveDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": http.StatusServiceUnavailable, "message": "归档未启用", "data": nil})
			return
		}
		log.Error("ListTurns: 查询归档失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询归档失败", "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": turns})
}
