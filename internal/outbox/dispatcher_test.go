package outbox

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocerly/internal/config"
	"grocerly/internal/domain/outbox"
	"grocerly/internal/events"
	"grocerly/internal/repository"
	"grocerly/internal/reqctx"
	"grocerly/pkg/logger"
)

type fakeOutboxRepo struct {
	records map[uuid.UUID]*outbox.Record
	seq     int64
	purged  []time.Time
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{records: make(map[uuid.UUID]*outbox.Record)}
}

func (f *fakeOutboxRepo) Create(ctx context.Context, tx repository.DBTX, rec *outbox.Record) error {
	cp := *rec
	f.seq++
	cp.Position = f.seq
	f.records[cp.ID] = &cp
	return nil
}

// GetDeliverable mirrors the SQL repository: pending and due, position order,
// and successors of a not-yet-due record of the same aggregate held back.
func (f *fakeOutboxRepo) GetDeliverable(ctx context.Context, now time.Time, limit int) ([]outbox.Record, error) {
	blockedFrom := make(map[string]int64)
	for _, rec := range f.records {
		if rec.Status != outbox.StatusPending || rec.NextAttemptAt == nil || !rec.NextAttemptAt.After(now) {
			continue
		}
		key := rec.AggregateType + "/" + rec.AggregateID
		if pos, ok := blockedFrom[key]; !ok || rec.Position < pos {
			blockedFrom[key] = rec.Position
		}
	}

	var out []outbox.Record
	for _, rec := range f.records {
		if rec.Status != outbox.StatusPending {
			continue
		}
		if rec.NextAttemptAt != nil && rec.NextAttemptAt.After(now) {
			continue
		}
		if pos, ok := blockedFrom[rec.AggregateType+"/"+rec.AggregateID]; ok && rec.Position > pos {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeOutboxRepo) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	rec := f.records[id]
	rec.Status = outbox.StatusDelivered
	rec.DeliveredAt = &at
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, nextAttempt time.Time, errMsg string) error {
	rec := f.records[id]
	rec.RetryCount++
	rec.LastError = errMsg
	rec.NextAttemptAt = &nextAttempt
	return nil
}

func (f *fakeOutboxRepo) MarkExpired(ctx context.Context, id uuid.UUID) error {
	f.records[id].Status = outbox.StatusExpired
	return nil
}

func (f *fakeOutboxRepo) MarkDead(ctx context.Context, id uuid.UUID, errMsg string) error {
	rec := f.records[id]
	rec.Status = outbox.StatusDead
	rec.LastError = errMsg
	return nil
}

func (f *fakeOutboxRepo) PurgeDelivered(ctx context.Context, olderThan time.Time) (int64, error) {
	f.purged = append(f.purged, olderThan)
	var n int64
	for id, rec := range f.records {
		if rec.Status == outbox.StatusDelivered && rec.DeliveredAt != nil && rec.DeliveredAt.Before(olderThan) {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

type fakePublisher struct {
	published []events.Envelope
	err       error
	failKinds map[events.Kind]bool
}

func (f *fakePublisher) Publish(ctx context.Context, stream string, env events.Envelope) error {
	if f.err != nil {
		return f.err
	}
	if f.failKinds[env.Kind] {
		return errors.New("stream write refused")
	}
	f.published = append(f.published, env)
	return nil
}

type fakeDeadLetterRepo struct {
	letters []*outbox.DeadLetter
}

func (f *fakeDeadLetterRepo) Create(ctx context.Context, d *outbox.DeadLetter) error {
	f.letters = append(f.letters, d)
	return nil
}

func (f *fakeDeadLetterRepo) List(ctx context.Context, limit int) ([]outbox.DeadLetter, error) {
	out := make([]outbox.DeadLetter, 0, len(f.letters))
	for _, d := range f.letters {
		out = append(out, *d)
	}
	return out, nil
}

func outboxConfig() config.OutboxConfig {
	return config.OutboxConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   time.Minute,
		MessageTTL:   24 * time.Hour,
		Retention:    72 * time.Hour,
	}
}

func newTestDispatcher(repo *fakeOutboxRepo, dead *fakeDeadLetterRepo, pub *fakePublisher) *Dispatcher {
	return NewDispatcher(repo, dead, pub, events.StreamCatalog, outboxConfig(), logger.New(logger.DevelopmentMode))
}

func enqueue(t *testing.T, p *Publisher, rc reqctx.Context, kind events.Kind, aggregateID string) {
	t.Helper()
	require.NoError(t, p.Enqueue(context.Background(), nil, rc, kind, events.AggregateItem, aggregateID,
		events.ItemEvent{Sku: uuid.New(), Name: "Eggs", Family: rc.Family}))
}

func TestPublisher_EnqueueStagesPendingRecord(t *testing.T) {
	repo := newFakeOutboxRepo()
	p := NewPublisher(repo, outboxConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.clock = func() time.Time { return base }

	rc := reqctx.Context{Family: "fam-1", UserID: "u1", OperationID: "op-1", RequestID: "req-1", TraceID: "tr-1"}
	enqueue(t, p, rc, events.KindItemCreated, "agg-1")

	require.Len(t, repo.records, 1)
	for _, rec := range repo.records {
		assert.Equal(t, outbox.StatusPending, rec.Status)
		assert.Equal(t, "fam-1", rec.Family)
		assert.Equal(t, "op-1", rec.OperationID)
		assert.Equal(t, "req-1", rec.RequestID)
		assert.Equal(t, "tr-1", rec.TraceID)
		assert.Equal(t, base.Add(24*time.Hour), rec.ExpiresAt)
	}
}

func TestDispatcher_DeliversInInsertionOrder(t *testing.T) {
	repo := newFakeOutboxRepo()
	pub := &fakePublisher{}
	p := NewPublisher(repo, outboxConfig())
	rc := reqctx.Context{Family: "fam-1"}

	enqueue(t, p, rc, events.KindItemCreated, "agg-1")
	enqueue(t, p, rc, events.KindItemUpdated, "agg-1")
	enqueue(t, p, rc, events.KindItemDeleted, "agg-1")

	d := newTestDispatcher(repo, &fakeDeadLetterRepo{}, pub)
	d.ProcessBatch(context.Background())

	require.Len(t, pub.published, 3)
	assert.Equal(t, events.KindItemCreated, pub.published[0].Kind)
	assert.Equal(t, events.KindItemUpdated, pub.published[1].Kind)
	assert.Equal(t, events.KindItemDeleted, pub.published[2].Kind)
	for _, rec := range repo.records {
		assert.Equal(t, outbox.StatusDelivered, rec.Status)
	}
}

func TestDispatcher_BrokerOutageKeepsRecordsAndOrder(t *testing.T) {
	repo := newFakeOutboxRepo()
	pub := &fakePublisher{err: errors.New("connection refused")}
	p := NewPublisher(repo, outboxConfig())
	rc := reqctx.Context{Family: "fam-1"}

	enqueue(t, p, rc, events.KindItemCreated, "agg-1")
	enqueue(t, p, rc, events.KindItemUpdated, "agg-1")

	d := newTestDispatcher(repo, &fakeDeadLetterRepo{}, pub)
	d.ProcessBatch(context.Background())

	assert.Empty(t, pub.published)
	var failed int
	for _, rec := range repo.records {
		assert.Equal(t, outbox.StatusPending, rec.Status, "retryable failures stay pending")
		if rec.RetryCount > 0 {
			failed++
			assert.Equal(t, 1, rec.RetryCount)
			assert.NotNil(t, rec.NextAttemptAt)
		}
	}
	assert.Equal(t, 1, failed, "only the first record should be marked failed")

	// Broker comes back after the retry delay; both go out, still in order.
	pub.err = nil
	d.clock = func() time.Time { return time.Now().Add(2 * time.Minute) }
	d.ProcessBatch(context.Background())
	require.Len(t, pub.published, 2)
	assert.Equal(t, events.KindItemCreated, pub.published[0].Kind)
	assert.Equal(t, events.KindItemUpdated, pub.published[1].Kind)
}

func TestDispatcher_RetryWindowHoldsBackSameAggregate(t *testing.T) {
	repo := newFakeOutboxRepo()
	pub := &fakePublisher{failKinds: map[events.Kind]bool{events.KindItemCreated: true}}
	p := NewPublisher(repo, outboxConfig())
	rc := reqctx.Context{Family: "fam-1"}

	enqueue(t, p, rc, events.KindItemCreated, "agg-1")
	enqueue(t, p, rc, events.KindItemUpdated, "agg-1")
	enqueue(t, p, rc, events.KindItemDeleted, "agg-2")

	d := newTestDispatcher(repo, &fakeDeadLetterRepo{}, pub)
	base := time.Now()
	d.clock = func() time.Time { return base }
	d.ProcessBatch(context.Background())

	// agg-1's first record failed; only agg-2 went out.
	require.Len(t, pub.published, 1)
	assert.Equal(t, "agg-2", pub.published[0].AggregateID)

	// Broker recovers, but the next poll lands inside the retry window. The
	// failed record is not yet due, and the newer agg-1 record must NOT jump
	// ahead of it.
	pub.failKinds = nil
	d.clock = func() time.Time { return base.Add(10 * time.Second) }
	d.ProcessBatch(context.Background())
	require.Len(t, pub.published, 1, "nothing may publish while the older record waits out its retry delay")

	// Past the retry delay both go out, oldest first.
	d.clock = func() time.Time { return base.Add(2 * time.Minute) }
	d.ProcessBatch(context.Background())
	require.Len(t, pub.published, 3)
	assert.Equal(t, events.KindItemCreated, pub.published[1].Kind)
	assert.Equal(t, events.KindItemUpdated, pub.published[2].Kind)
}

func TestDispatcher_SameInstantEnqueuesKeepOrder(t *testing.T) {
	repo := newFakeOutboxRepo()
	pub := &fakePublisher{}
	p := NewPublisher(repo, outboxConfig())
	// Freeze the clock so both records share one created_at; position alone
	// must carry the order.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.clock = func() time.Time { return base }
	rc := reqctx.Context{Family: "fam-1"}

	enqueue(t, p, rc, events.KindItemCreated, "agg-1")
	enqueue(t, p, rc, events.KindItemUpdated, "agg-1")

	d := newTestDispatcher(repo, &fakeDeadLetterRepo{}, pub)
	d.clock = func() time.Time { return base }
	d.ProcessBatch(context.Background())

	require.Len(t, pub.published, 2)
	assert.Equal(t, events.KindItemCreated, pub.published[0].Kind)
	assert.Equal(t, events.KindItemUpdated, pub.published[1].Kind)
}

func TestDispatcher_FailureBlocksOnlySameAggregate(t *testing.T) {
	repo := newFakeOutboxRepo()
	pub := &fakePublisher{failKinds: map[events.Kind]bool{events.KindItemUpdated: true}}
	p := NewPublisher(repo, outboxConfig())
	rc := reqctx.Context{Family: "fam-1"}

	enqueue(t, p, rc, events.KindItemUpdated, "agg-1")
	enqueue(t, p, rc, events.KindItemDeleted, "agg-1")
	enqueue(t, p, rc, events.KindItemCreated, "agg-2")

	d := newTestDispatcher(repo, &fakeDeadLetterRepo{}, pub)
	d.ProcessBatch(context.Background())

	// agg-1 is held back after its first record failed; agg-2 is unaffected.
	require.Len(t, pub.published, 1)
	assert.Equal(t, events.KindItemCreated, pub.published[0].Kind)
	assert.Equal(t, "agg-2", pub.published[0].AggregateID)
}

func TestDispatcher_DropsExpiredRecords(t *testing.T) {
	repo := newFakeOutboxRepo()
	pub := &fakePublisher{}
	p := NewPublisher(repo, outboxConfig())
	rc := reqctx.Context{Family: "fam-1"}

	enqueue(t, p, rc, events.KindItemCreated, "agg-1")

	d := newTestDispatcher(repo, &fakeDeadLetterRepo{}, pub)
	d.clock = func() time.Time { return time.Now().Add(25 * time.Hour) }
	d.ProcessBatch(context.Background())

	assert.Empty(t, pub.published)
	for _, rec := range repo.records {
		assert.Equal(t, outbox.StatusExpired, rec.Status)
	}
}

func TestDispatcher_DeadLettersAfterMaxRetries(t *testing.T) {
	repo := newFakeOutboxRepo()
	pub := &fakePublisher{err: errors.New("connection refused")}
	dead := &fakeDeadLetterRepo{}
	p := NewPublisher(repo, outboxConfig())
	rc := reqctx.Context{Family: "fam-1"}

	enqueue(t, p, rc, events.KindItemCreated, "agg-1")

	d := newTestDispatcher(repo, dead, pub)
	// Each batch bumps the retry count; run past the budget with the retry
	// delay elapsed every time.
	for i := 0; i < 4; i++ {
		offset := time.Duration(i+1) * 2 * time.Minute
		d.clock = func() time.Time { return time.Now().Add(offset) }
		d.ProcessBatch(context.Background())
	}

	require.Len(t, dead.letters, 1)
	assert.Equal(t, outbox.ReasonMaxRetries, dead.letters[0].Reason)
	assert.Equal(t, string(events.KindItemCreated), dead.letters[0].Kind)
	assert.Equal(t, 3, dead.letters[0].Attempts)
	for _, rec := range repo.records {
		assert.Equal(t, outbox.StatusDead, rec.Status)
	}
}

func TestDispatcher_PurgeDropsOldDeliveredRecords(t *testing.T) {
	repo := newFakeOutboxRepo()
	pub := &fakePublisher{}
	p := NewPublisher(repo, outboxConfig())
	rc := reqctx.Context{Family: "fam-1"}

	enqueue(t, p, rc, events.KindItemCreated, "agg-1")

	d := newTestDispatcher(repo, &fakeDeadLetterRepo{}, pub)
	d.ProcessBatch(context.Background())
	require.Len(t, repo.records, 1)

	d.clock = func() time.Time { return time.Now().Add(80 * time.Hour) }
	d.purge(context.Background())
	assert.Empty(t, repo.records)
	require.Len(t, repo.purged, 1)
}
