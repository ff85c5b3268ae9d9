package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"

	"grocerly/pkg/logger"
)

// Correlation headers. The gateway generates missing ones; backend services
// trust and forward whatever arrives.
const (
	HeaderRequestID   = "X-Request-Id"
	HeaderOperationID = "X-Operation-Id"
	HeaderTraceID     = "X-Trace-Id"
)

// CorrelationMiddleware ensures every request carries request, operation and
// trace identifiers, echoes them on the response, and puts them on the
// request context so log lines and published events can carry them.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := headerOrNew(c, HeaderRequestID)
		operationID := headerOrNew(c, HeaderOperationID)
		traceID := headerOrNew(c, HeaderTraceID)

		c.Writer.Header().Set(HeaderRequestID, requestID)
		c.Writer.Header().Set(HeaderTraceID, traceID)

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, logger.RequestIdKey, requestID)
		ctx = context.WithValue(ctx, logger.OperationIdKey, operationID)
		ctx = context.WithValue(ctx, logger.TraceIdKey, traceID)
		c.Request = c.Request.WithContext(ctx)

		c.Set(string(logger.RequestIdKey), requestID)
		c.Set(string(logger.OperationIdKey), operationID)
		c.Set(string(logger.TraceIdKey), traceID)

		c.Next()
	}
}

func headerOrNew(c *gin.Context, header string) string {
	if v := c.GetHeader(header); v != "" {
		return v
	}
	return newID()
}

func newID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
