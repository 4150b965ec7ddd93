// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"solar-assistant-go/pkg/log"
	"solar-assistant-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// SessionIDKey 是会话 ID 在 gin.Context 中的键。
const SessionIDKey = "sessionID"

// SessionMiddleware 创建一个 Gin 中间件，从 cookie 中解析会话 token。
// cookie 缺失或无效时签发新的会话，并将会话 ID 存入 Gin 的上下文中。
func SessionMiddleware(sessions *token.SessionManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(cookieName); err == nil && raw != "" {
			if claims, err := sessions.VerifyToken(raw); err == nil {
				c.Set(SessionIDKey, claims.SessionID)
				c.Next()
				return
			}
			log.Infof("会话 token 无效或已过期，重新签发")
		}

		sessionID, tokenString, err := sessions.NewSession()
		if err != nil {
			log.Error("签发会话 token 失败", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法创建会话", "data": nil})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, tokenString, int(sessions.TTL().Seconds()), "/", "", false, true)
		c.Set(SessionIDKey, sessionID)
		c.Next()
	}
}

// SessionID 返回 SessionMiddleware 存入上下文的会话 ID。
func SessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
