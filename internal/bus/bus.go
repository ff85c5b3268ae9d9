// Package bus provides reliable transport between the services' outboxes and
// consumers, built on Redis Streams consumer groups: at-least-once delivery,
// per-stream FIFO order, explicit acknowledgment.
package bus

import (
	"context"

	"grocerly/internal/events"
)

// Publisher delivers envelopes to a stream.
type Publisher interface {
	Publish(ctx context.Context, stream string, env events.Envelope) error
}

// Handler processes one delivered envelope. A nil return acknowledges the
// message; a non-nil return leaves it pending for redelivery.
type Handler func(ctx context.Context, env events.Envelope) error

// DeadLetterFunc is invoked for messages that exhausted their redelivery
// budget, just before they are acknowledged and dropped from the queue.
type DeadLetterFunc func(ctx context.Context, env events.Envelope, deliveries int64)
