package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/pkg/logctx"
)

// RequestLoggerMiddleware attaches a logger carrying trace_id and echoes the
// trace id in the response.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := logctx.TraceID(c.Request.Context())
		logctx.Set(c, logctx.KeyLogger, base.With("trace_id", traceID))
		if traceID != "" {
			c.Writer.Header().Set(requestIDHeader, traceID)
		}
		c.Next()
	}
}
