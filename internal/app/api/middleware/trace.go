package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fatflowers/paygate/pkg/logctx"
)

const (
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLen = 128
)

// TraceMiddleware assigns every request a trace id. A caller supplied
// X-Request-ID is reused unless it is oversized; otherwise a UUID is minted.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(string(logctx.TraceIDKey), id)
		c.Request = c.Request.WithContext(logctx.WithTraceID(c.Request.Context(), id))
		c.Next()
	}
}
