// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"solar-assistant-go/internal/config"
	"solar-assistant-go/internal/middleware"
	"solar-assistant-go/internal/service"
	"solar-assistant-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// Services 汇总路由需要的业务服务。
type Services struct {
	Chat       service.ChatService
	Transcript service.TranscriptService
	Archive    service.ArchiveService
}

// NewRouter 创建 Gin 引擎并注册所有路由。
func NewRouter(cfg config.Config, services Services, sessions *token.SessionManager) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(gin.Recovery())

	session := middleware.SessionMiddleware(sessions, cfg.Session.CookieName)
	chatHandler := NewChatHandler(services.Chat, cfg.Assistant)
	transcriptHandler := NewTranscriptHandler(services.Transcript)

	apiV1 := r.Group("/api/v1")
	// 日志中间件需要在会话中间件之后注册，才能记录会话 ID
	apiV1.Use(session, middleware.RequestLogger())
	{
		apiV1.GET("/assistant", chatHandler.Info)

		chat := apiV1.Group("/chat")
		{
			chat.POST("", chatHandler.Ask)
			chat.GET("/history", transcriptHandler.GetHistory)
			chat.DELETE("/history", transcriptHandler.ClearHistory)
		}

		// 管理员路由组，需要通过管理员密钥校验
		admin := apiV1.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(cfg.Admin.KeyHash))
		{
			admin.GET("/turns", NewAdminHandler(services.Archive).ListTurns)
		}
	}

	// Chat 路由 (WebSocket)
	r.GET("/chat/ws", session, chatHandler.Handle)

	return r
}
