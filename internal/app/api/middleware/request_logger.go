package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/pkg/logctx"
)

// RequestLoggerMiddleware attaches a request-scoped logger enriched with
// trace_id and the route's order_id (if present) to gin.Context and request context.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetString(string(logctx.TraceIDKey))

		reqLogger := base.With("trace_id", traceID)
		ctx := logctx.WithLogger(c.Request.Context(), reqLogger)
		if orderID := c.Param("order_id"); orderID != "" {
			ctx = logctx.WithOrderID(ctx, orderID)
			reqLogger = logctx.FromCtx(ctx, reqLogger)
		}
		c.Set(string(logctx.LoggerKey), reqLogger)
		c.Request = c.Request.WithContext(ctx)

		// echo the trace id so callers can quote it
		if traceID != "" {
			c.Writer.Header().Set(RequestIDHeader, traceID)
		}

		c.Next()
	}
}
