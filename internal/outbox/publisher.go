// Package outbox implements the transactional-outbox side of event
// publication: events are staged in the database inside the transaction of
// the write that caused them, and a background dispatcher relays them to the
// bus.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"grocerly/internal/config"
	"grocerly/internal/domain/outbox"
	"grocerly/internal/events"
	"grocerly/internal/repository"
	"grocerly/internal/reqctx"
)

// Publisher stages domain events for delivery. Enqueue must be called inside
// the same transaction as the business mutation; no broker I/O happens here.
type Publisher struct {
	repo  repository.OutboxRepository
	ttl   time.Duration
	clock func() time.Time
}

func NewPublisher(repo repository.OutboxRepository, cfg config.OutboxConfig) *Publisher {
	return &Publisher{
		repo:  repo,
		ttl:   cfg.MessageTTL,
		clock: time.Now,
	}
}

// Enqueue serializes payload and inserts an outbox record through tx. The
// record commits or rolls back together with the business write, so an event
// exists if and only if the mutation it describes was committed.
func (p *Publisher) Enqueue(ctx context.Context, tx repository.DBTX, rc reqctx.Context,
	kind events.Kind, aggregateType, aggregateID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	now := p.clock()
	rec := &outbox.Record{
		ID:            uuid.New(),
		Kind:          string(kind),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Family:        rc.Family,
		Payload:       body,
		OperationID:   rc.OperationID,
		RequestID:     rc.RequestID,
		TraceID:       rc.TraceID,
		Status:        outbox.StatusPending,
		ExpiresAt:     now.Add(p.ttl),
		CreatedAt:     now,
	}
	return p.repo.Create(ctx, tx, rec)
}
