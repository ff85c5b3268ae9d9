package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocerly/internal/config"
	"grocerly/internal/events"
	"grocerly/pkg/logger"
)

func testBusConfig() config.BusConfig {
	return config.BusConfig{
		ConnectRetries:    1,
		ConnectRetryDelay: 10 * time.Millisecond,
		ConsumerName:      "test-consumer",
		MaxDeliveries:     3,
		RedeliveryDelay:   50 * time.Millisecond,
		BlockTimeout:      10 * time.Millisecond,
	}
}

func setupBus(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })
	return m, client
}

func testEnvelope() events.Envelope {
	payload, _ := json.Marshal(events.CategoryEvent{Name: "Dairy", Family: "fam-1"})
	return events.Envelope{
		Kind:          events.KindCategoryUpdated,
		AggregateType: events.AggregateCategory,
		AggregateID:   "c0ffee",
		Family:        "fam-1",
		OccurredAt:    time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		OperationID:   "op-1",
		RequestID:     "req-1",
		TraceID:       "tr-1",
		Payload:       payload,
	}
}

func TestConnect_ReachableBroker(t *testing.T) {
	m, _ := setupBus(t)
	client, err := Connect(context.Background(), config.RedisConfig{Addr: m.Addr()}, testBusConfig())
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestGroupConsumer_PublishConsumeAck(t *testing.T) {
	_, client := setupBus(t)
	ctx := context.Background()
	log := logger.New(logger.DevelopmentMode)

	pub := NewRedisPublisher(client)
	require.NoError(t, pub.Publish(ctx, events.StreamCatalog, testEnvelope()))

	c := NewGroupConsumer(client, events.StreamCatalog, events.GroupShoppingListService, testBusConfig(), log)
	var got events.Envelope
	c.Subscribe(events.KindCategoryUpdated, func(ctx context.Context, env events.Envelope) error {
		got = env
		return nil
	})

	require.NoError(t, c.ensureGroup(ctx))
	require.NoError(t, c.readNew(ctx))

	// The envelope survives the stream hop intact.
	assert.Equal(t, events.KindCategoryUpdated, got.Kind)
	assert.Equal(t, "fam-1", got.Family)
	assert.Equal(t, "op-1", got.OperationID)
	assert.Equal(t, "tr-1", got.TraceID)
	assert.True(t, got.OccurredAt.Equal(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)))
	var payload events.CategoryEvent
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, "Dairy", payload.Name)

	// Acked: nothing left pending for the group.
	pending, err := client.XPending(ctx, events.StreamCatalog, events.GroupShoppingListService).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestGroupConsumer_UnhandledKindIsAcked(t *testing.T) {
	_, client := setupBus(t)
	ctx := context.Background()

	pub := NewRedisPublisher(client)
	require.NoError(t, pub.Publish(ctx, events.StreamCatalog, testEnvelope()))

	c := NewGroupConsumer(client, events.StreamCatalog, events.GroupNotifierService, testBusConfig(), logger.New(logger.DevelopmentMode))
	require.NoError(t, c.ensureGroup(ctx))
	require.NoError(t, c.readNew(ctx))

	pending, err := client.XPending(ctx, events.StreamCatalog, events.GroupNotifierService).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestGroupConsumer_HandlerErrorLeavesMessagePending(t *testing.T) {
	_, client := setupBus(t)
	ctx := context.Background()

	pub := NewRedisPublisher(client)
	require.NoError(t, pub.Publish(ctx, events.StreamCatalog, testEnvelope()))

	c := NewGroupConsumer(client, events.StreamCatalog, events.GroupShoppingListService, testBusConfig(), logger.New(logger.DevelopmentMode))
	c.Subscribe(events.KindCategoryUpdated, func(ctx context.Context, env events.Envelope) error {
		return errors.New("db down")
	})

	require.NoError(t, c.ensureGroup(ctx))
	require.NoError(t, c.readNew(ctx))

	pending, err := client.XPending(ctx, events.StreamCatalog, events.GroupShoppingListService).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count)
}

func TestGroupConsumer_ReclaimRedeliversAfterIdle(t *testing.T) {
	_, client := setupBus(t)
	ctx := context.Background()

	pub := NewRedisPublisher(client)
	require.NoError(t, pub.Publish(ctx, events.StreamCatalog, testEnvelope()))

	// Idle time accrues on the wall clock, so keep the redelivery delay
	// short enough to sleep past.
	cfg := testBusConfig()
	cfg.RedeliveryDelay = 20 * time.Millisecond
	c := NewGroupConsumer(client, events.StreamCatalog, events.GroupShoppingListService, cfg, logger.New(logger.DevelopmentMode))
	healthy := false
	var deliveries int
	c.Subscribe(events.KindCategoryUpdated, func(ctx context.Context, env events.Envelope) error {
		deliveries++
		if !healthy {
			return errors.New("db down")
		}
		return nil
	})

	require.NoError(t, c.ensureGroup(ctx))
	require.NoError(t, c.readNew(ctx))
	require.Equal(t, 1, deliveries)

	// Recovery: the pending entry is reclaimed once it has sat idle.
	healthy = true
	time.Sleep(3 * cfg.RedeliveryDelay)
	c.reclaimPending(ctx)
	assert.Equal(t, 2, deliveries)

	pending, err := client.XPending(ctx, events.StreamCatalog, events.GroupShoppingListService).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestGroupConsumer_ExhaustedDeliveriesAreDeadLettered(t *testing.T) {
	_, client := setupBus(t)
	ctx := context.Background()

	pub := NewRedisPublisher(client)
	require.NoError(t, pub.Publish(ctx, events.StreamCatalog, testEnvelope()))

	cfg := testBusConfig()
	cfg.MaxDeliveries = 0
	cfg.RedeliveryDelay = 20 * time.Millisecond
	c := NewGroupConsumer(client, events.StreamCatalog, events.GroupShoppingListService, cfg, logger.New(logger.DevelopmentMode))
	c.Subscribe(events.KindCategoryUpdated, func(ctx context.Context, env events.Envelope) error {
		return errors.New("db down")
	})

	var dropped events.Envelope
	var droppedCount int64
	c.OnDeadLetter(func(ctx context.Context, env events.Envelope, deliveries int64) {
		dropped = env
		droppedCount = deliveries
	})

	require.NoError(t, c.ensureGroup(ctx))
	require.NoError(t, c.readNew(ctx))

	time.Sleep(3 * cfg.RedeliveryDelay)
	c.reclaimPending(ctx)

	assert.Equal(t, events.KindCategoryUpdated, dropped.Kind)
	assert.GreaterOrEqual(t, droppedCount, int64(1))

	pending, err := client.XPending(ctx, events.StreamCatalog, events.GroupShoppingListService).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestGroupConsumer_SubscribeAllSeesEveryKind(t *testing.T) {
	_, client := setupBus(t)
	ctx := context.Background()

	pub := NewRedisPublisher(client)
	env1 := testEnvelope()
	env2 := testEnvelope()
	env2.Kind = events.KindItemCreated
	require.NoError(t, pub.Publish(ctx, events.StreamCatalog, env1))
	require.NoError(t, pub.Publish(ctx, events.StreamCatalog, env2))

	c := NewGroupConsumer(client, events.StreamCatalog, events.GroupNotifierService, testBusConfig(), logger.New(logger.DevelopmentMode))
	var seen []events.Kind
	c.SubscribeAll(func(ctx context.Context, env events.Envelope) error {
		seen = append(seen, env.Kind)
		return nil
	})

	require.NoError(t, c.ensureGroup(ctx))
	require.NoError(t, c.readNew(ctx))

	assert.Equal(t, []events.Kind{events.KindCategoryUpdated, events.KindItemCreated}, seen)
}
