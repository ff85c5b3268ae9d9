package consumer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"grocerly/internal/bus"
	"grocerly/internal/domain/outbox"
	"grocerly/internal/events"
	"grocerly/internal/repository"
	"grocerly/pkg/logger"
)

// HandlerFunc processes one envelope and reports an explicit outcome.
type HandlerFunc func(ctx context.Context, env events.Envelope) Outcome

// Registry is an explicit dispatch table mapping event kind to handler,
// decoupled from any broker library's subscription mechanism.
type Registry struct {
	handlers map[events.Kind]HandlerFunc
	log      *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		handlers: make(map[events.Kind]HandlerFunc),
		log:      log,
	}
}

func (r *Registry) Register(kind events.Kind, h HandlerFunc) {
	r.handlers[kind] = h
}

// Dispatch routes the envelope to its handler. Unknown kinds are ignored.
func (r *Registry) Dispatch(ctx context.Context, env events.Envelope) Outcome {
	h, ok := r.handlers[env.Kind]
	if !ok {
		return NothingToApply()
	}
	return h(ctx, env)
}

// BusHandler adapts the registry to the bus contract. Applied and
// nothing-to-apply acknowledge; rejected messages are dead-lettered once and
// acknowledged; failed messages are left pending for broker redelivery.
func (r *Registry) BusHandler(deadRepo repository.DeadLetterRepository) bus.Handler {
	return func(ctx context.Context, env events.Envelope) error {
		out := r.Dispatch(ctx, env)
		switch out.Status {
		case StatusApplied:
			r.log.InfoCtx(ctx, "consumer: applied %s for aggregate %s", env.Kind, env.AggregateID)
			return nil
		case StatusNothingToApply:
			return nil
		case StatusRejected:
			r.log.WarnCtx(ctx, "consumer: rejected %s for aggregate %s: %v", env.Kind, env.AggregateID, out.Err)
			if deadRepo != nil {
				letter := &outbox.DeadLetter{
					ID:       uuid.New(),
					EventID:  env.AggregateID,
					Kind:     string(env.Kind),
					Payload:  env.Payload,
					Reason:   outbox.ReasonRejected,
					Message:  out.Err.Error(),
					Attempts: 1,
					FailedAt: time.Now(),
				}
				if err := deadRepo.Create(ctx, letter); err != nil {
					r.log.Errorf("consumer: dead-letter for %s failed: %v", env.Kind, err)
				}
			}
			return nil
		case StatusFailed:
			r.log.ErrorCtx(ctx, "consumer: apply %s for aggregate %s failed: %v", env.Kind, env.AggregateID, out.Err)
			return out.Err
		default:
			return nil
		}
	}
}

// DeadLetterSink returns the callback the bus invokes for messages that
// exhausted their redelivery budget.
func DeadLetterSink(deadRepo repository.DeadLetterRepository, log *logger.Logger) bus.DeadLetterFunc {
	return func(ctx context.Context, env events.Envelope, deliveries int64) {
		letter := &outbox.DeadLetter{
			ID:       uuid.New(),
			EventID:  env.AggregateID,
			Kind:     string(env.Kind),
			Payload:  env.Payload,
			Reason:   outbox.ReasonMaxDeliveries,
			Message:  "exceeded redelivery budget",
			Attempts: int(deliveries),
			FailedAt: time.Now(),
		}
		if err := deadRepo.Create(ctx, letter); err != nil {
			log.Errorf("consumer: dead-letter for %s failed: %v", env.Kind, err)
		}
	}
}
