package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fatflowers/tgpass/pkg/logctx"
)

const requestIDHeader = "X-Request-ID"

// TraceMiddleware assigns the trace id: X-Request-ID when the client sends a
// sane one, a new UUID otherwise.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(requestIDHeader)
		if traceID == "" || len(traceID) > 128 {
			traceID = uuid.New().String()
		}
		logctx.Set(c, logctx.KeyTraceID, traceID)
		c.Next()
	}
}
