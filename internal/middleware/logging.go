// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"io"
	"net/http"
	"solar-assistant-go/pkg/log"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// maxLoggedBody 是日志中保留的请求/响应体最大字节数，回答可能很长。
const maxLoggedBody = 2048

// bodyLogWriter 同时写入响应和内部 buffer，用于记录响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		w.body.Write(b[:room])
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger 记录每个请求的会话、状态码、耗时以及截断后的请求/响应体。
// 4xx 记为 warn，5xx 记为 error。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
		}
		// 放回请求体，后续 ShouldBindJSON 还要读取
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))

		blw := &bodyLogWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		statusCode := c.Writer.Status()
		fields := []interface{}{
			"sessionID", SessionID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"statusCode", statusCode,
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"requestBody", truncate(requestBody),
			"responseBody", truncate(blw.body.Bytes()),
		}
		switch {
		case statusCode >= http.StatusInternalServerError:
			log.Errorw("HTTP Request Log", fields...)
		case statusCode >= http.StatusBadRequest:
			log.Warnw("HTTP Request Log", fields...)
		default:
			log.Infow("HTTP Request Log", fields...)
		}
	}
}

// truncate 截断到 maxLoggedBody 字节，不切断多字节字符。
func truncate(b []byte) string {
	if len(b) <= maxLoggedBody {
		return string(b)
	}
	b = b[:maxLoggedBody]
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return string(b) + "...(truncated)"
}
