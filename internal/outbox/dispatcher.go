package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"grocerly/internal/bus"
	"grocerly/internal/config"
	"grocerly/internal/domain/outbox"
	"grocerly/internal/events"
	"grocerly/internal/repository"
	"grocerly/pkg/logger"
)

// Dispatcher is the background relay loop: it polls the outbox for
// undelivered records, publishes them to the bus in insertion order per
// aggregate, and marks them delivered on acknowledgment. Broker outages leave
// records pending for the next poll; nothing is lost and nothing is
// published before its transaction committed.
type Dispatcher struct {
	repo       repository.OutboxRepository
	deadRepo   repository.DeadLetterRepository
	publisher  bus.Publisher
	stream     string
	log        *logger.Logger
	clock      func() time.Time
	interval   time.Duration
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	retention  time.Duration
}

func NewDispatcher(repo repository.OutboxRepository, deadRepo repository.DeadLetterRepository,
	publisher bus.Publisher, stream string, cfg config.OutboxConfig, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		deadRepo:   deadRepo,
		publisher:  publisher,
		stream:     stream,
		log:        log,
		clock:      time.Now,
		interval:   cfg.PollInterval,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		retention:  cfg.Retention,
	}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.ProcessBatch(ctx)
			d.purge(ctx)
		}
	}
}

// ProcessBatch publishes one batch of deliverable records. When a record for
// an aggregate fails, later records of the same aggregate are skipped for
// this batch so per-aggregate order is preserved on the stream.
func (d *Dispatcher) ProcessBatch(ctx context.Context) {
	now := d.clock()
	records, err := d.repo.GetDeliverable(ctx, now, d.batchSize)
	if err != nil {
		d.log.Errorf("outbox: fetch deliverable failed: %v", err)
		return
	}

	blocked := make(map[string]bool)
	for _, rec := range records {
		aggregate := rec.AggregateType + "/" + rec.AggregateID
		if blocked[aggregate] {
			continue
		}

		if now.After(rec.ExpiresAt) {
			d.log.Warnf("outbox: dropping expired record %s (%s)", rec.ID, rec.Kind)
			if err := d.repo.MarkExpired(ctx, rec.ID); err != nil {
				d.log.Errorf("outbox: mark expired %s failed: %v", rec.ID, err)
			}
			continue
		}

		if rec.RetryCount >= d.maxRetries {
			d.deadLetter(ctx, rec)
			continue
		}

		if err := d.publisher.Publish(ctx, d.stream, envelopeFor(rec)); err != nil {
			d.log.Errorf("outbox: publish %s failed: %v", rec.ID, err)
			if markErr := d.repo.MarkFailed(ctx, rec.ID, now.Add(d.retryDelay), err.Error()); markErr != nil {
				d.log.Errorf("outbox: mark failed %s failed: %v", rec.ID, markErr)
			}
			blocked[aggregate] = true
			continue
		}

		if err := d.repo.MarkDelivered(ctx, rec.ID, d.clock()); err != nil {
			// The publish went out; on restart the record is re-published and
			// consumers rely on idempotent application.
			d.log.Errorf("outbox: mark delivered %s failed: %v", rec.ID, err)
			blocked[aggregate] = true
		}
	}
}

func (d *Dispatcher) deadLetter(ctx context.Context, rec outbox.Record) {
	d.log.Errorf("outbox: record %s (%s) exceeded %d retries, dead-lettering", rec.ID, rec.Kind, d.maxRetries)
	if d.deadRepo != nil {
		letter := &outbox.DeadLetter{
			ID:       uuid.New(),
			EventID:  rec.ID.String(),
			Kind:     rec.Kind,
			Payload:  rec.Payload,
			Reason:   outbox.ReasonMaxRetries,
			Message:  rec.LastError,
			Attempts: rec.RetryCount,
			FailedAt: d.clock(),
		}
		if err := d.deadRepo.Create(ctx, letter); err != nil {
			d.log.Errorf("outbox: dead-letter %s failed: %v", rec.ID, err)
			return
		}
	}
	if err := d.repo.MarkDead(ctx, rec.ID, "max retries exceeded"); err != nil {
		d.log.Errorf("outbox: mark dead %s failed: %v", rec.ID, err)
	}
}

func (d *Dispatcher) purge(ctx context.Context) {
	cutoff := d.clock().Add(-d.retention)
	if n, err := d.repo.PurgeDelivered(ctx, cutoff); err != nil {
		d.log.Errorf("outbox: purge failed: %v", err)
	} else if n > 0 {
		d.log.Debugf("outbox: purged %d delivered records", n)
	}
}

func envelopeFor(rec outbox.Record) events.Envelope {
	return events.Envelope{
		Kind:          events.Kind(rec.Kind),
		AggregateType: rec.AggregateType,
		AggregateID:   rec.AggregateID,
		Family:        rec.Family,
		OccurredAt:    rec.CreatedAt.UTC(),
		OperationID:   rec.OperationID,
		RequestID:     rec.RequestID,
		TraceID:       rec.TraceID,
		Payload:       json.RawMessage(rec.Payload),
	}
}
