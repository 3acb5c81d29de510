package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/pkg/logctx"
)

// AccessLogMiddleware writes one http_access line per request with the
// request logger. Server errors log at error level, auth and client
// rejections at warn.
func AccessLogMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []any{
			"method", c.Request.Method,
			"path", route,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"resp_bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if uid := c.GetString(logctx.KeyUserID); uid != "" {
			fields = append(fields, "user_id", uid)
		}

		l := logctx.FromGin(c, base)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			l.Errorw("http_access", fields...)
		case status >= http.StatusBadRequest:
			l.Warnw("http_access", fields...)
		default:
			l.Infow("http_access", fields...)
		}
	}
}
