package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"grocerly/internal/reqctx"
	"grocerly/internal/services"
	"grocerly/internal/transport/httpdto"
	"grocerly/pkg/logger"
)

// Identity headers stamped by the gateway after token validation. Backend
// services sit behind the gateway and trust them.
const (
	HeaderFamily = "X-Family"
	HeaderUserID = "X-User-Id"
)

const reqctxKey = "grocerly/reqctx"

// AuthMiddleware validates the bearer token and attaches the caller's
// identity to the request. Used by the gateway, and by services addressed
// directly with a token.
func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := auth.ParseAccessToken(extractBearer(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}
		attachIdentity(c, claims.Family, claims.UserID)
		c.Next()
	}
}

// IdentityMiddleware reads the identity headers stamped by the gateway.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		family := c.GetHeader(HeaderFamily)
		if family == "" {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}
		attachIdentity(c, family, c.GetHeader(HeaderUserID))
		c.Next()
	}
}

// RequestContext assembles the explicit per-request context from values the
// correlation and auth middleware attached.
func RequestContext(c *gin.Context) reqctx.Context {
	if v, ok := c.Get(reqctxKey); ok {
		if rc, ok := v.(reqctx.Context); ok {
			return rc
		}
	}
	return reqctx.Context{
		OperationID: c.GetString(string(logger.OperationIdKey)),
		RequestID:   c.GetString(string(logger.RequestIdKey)),
		TraceID:     c.GetString(string(logger.TraceIdKey)),
	}
}

func attachIdentity(c *gin.Context, family, userID string) {
	rc := reqctx.Context{
		Family:      family,
		UserID:      userID,
		OperationID: c.GetString(string(logger.OperationIdKey)),
		RequestID:   c.GetString(string(logger.RequestIdKey)),
		TraceID:     c.GetString(string(logger.TraceIdKey)),
	}
	c.Set(reqctxKey, rc)
	c.Request = c.Request.WithContext(rc.WithLogFields(c.Request.Context()))
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
