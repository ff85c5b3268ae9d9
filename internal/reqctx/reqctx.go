// Package reqctx carries the identity and correlation data of an inbound
// request as an explicit value, passed by parameter into publishers and
// consumers instead of living in ambient per-request state.
package reqctx

import (
	"context"

	"grocerly/pkg/logger"
)

// Context identifies who performed an operation and which request caused it.
// Family is the tenant partition key; every entity and event is scoped to it.
type Context struct {
	Family      string
	UserID      string
	OperationID string
	RequestID   string
	TraceID     string
}

// WithLogFields copies the correlation identifiers onto ctx so that the
// logger's Ctx variants pick them up.
func (rc Context) WithLogFields(ctx context.Context) context.Context {
	if rc.RequestID != "" {
		ctx = context.WithValue(ctx, logger.RequestIdKey, rc.RequestID)
	}
	if rc.OperationID != "" {
		ctx = context.WithValue(ctx, logger.OperationIdKey, rc.OperationID)
	}
	if rc.TraceID != "" {
		ctx = context.WithValue(ctx, logger.TraceIdKey, rc.TraceID)
	}
	if rc.Family != "" {
		ctx = context.WithValue(ctx, logger.FamilyKey, rc.Family)
	}
	if rc.UserID != "" {
		ctx = context.WithValue(ctx, logger.UserIdKey, rc.UserID)
	}
	return ctx
}
