package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"grocerly/internal/config"
	"grocerly/internal/events"
	"grocerly/pkg/logger"
)

const readBatchSize = 16

// Connect opens a Redis client and verifies the connection, retrying at a
// fixed interval. This transport-level retry is distinct from the outbox
// retry: the outbox covers "broker was down when we tried to publish", this
// covers "broker unreachable at startup".
func Connect(ctx context.Context, cfg config.RedisConfig, busCfg config.BusConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var err error
	for attempt := 0; attempt <= busCfg.ConnectRetries; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(busCfg.ConnectRetryDelay):
		}
	}
	return nil, fmt.Errorf("redis unreachable after %d retries: %w", busCfg.ConnectRetries, err)
}

// RedisPublisher appends envelopes to a stream via XADD.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, stream string, env events.Envelope) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: envelopeToValues(env),
	}).Err()
}

// GroupConsumer reads one stream on behalf of one durable consumer group and
// dispatches messages to handlers registered per event kind. Unacknowledged
// messages are reclaimed and redelivered after RedeliveryDelay, up to
// MaxDeliveries attempts, after which the dead-letter callback fires and the
// message is acknowledged.
type GroupConsumer struct {
	client     *redis.Client
	stream     string
	group      string
	consumer   string
	log        *logger.Logger
	block      time.Duration
	redelivery time.Duration
	maxDeliver int64

	mu         sync.RWMutex
	handlers   map[events.Kind][]Handler
	deadLetter DeadLetterFunc
}

func NewGroupConsumer(client *redis.Client, stream, group string, cfg config.BusConfig, log *logger.Logger) *GroupConsumer {
	return &GroupConsumer{
		client:     client,
		stream:     stream,
		group:      group,
		consumer:   cfg.ConsumerName,
		log:        log,
		block:      cfg.BlockTimeout,
		redelivery: cfg.RedeliveryDelay,
		maxDeliver: int64(cfg.MaxDeliveries),
		handlers:   make(map[events.Kind][]Handler),
	}
}

// Subscribe registers a handler for one event kind. Kinds without a handler
// are acknowledged untouched.
func (c *GroupConsumer) Subscribe(kind events.Kind, h Handler) {
	c.mu.Lock()
	c.handlers[kind] = append(c.handlers[kind], h)
	c.mu.Unlock()
}

// SubscribeAll registers a handler invoked for every kind on the stream.
func (c *GroupConsumer) SubscribeAll(h Handler) {
	c.Subscribe(kindAny, h)
}

// OnDeadLetter sets the callback for messages dropped after exhausting their
// redelivery budget.
func (c *GroupConsumer) OnDeadLetter(fn DeadLetterFunc) {
	c.mu.Lock()
	c.deadLetter = fn
	c.mu.Unlock()
}

const kindAny events.Kind = "*"

// Run drives the consume loop until ctx is cancelled.
func (c *GroupConsumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	lastReclaim := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := c.readNew(ctx); err != nil && ctx.Err() == nil {
			c.log.Errorf("bus: read %s failed: %v", c.stream, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}

		if time.Since(lastReclaim) >= c.redelivery {
			c.reclaimPending(ctx)
			lastReclaim = time.Now()
		}
	}
}

func (c *GroupConsumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", c.group, c.stream, err)
	}
	return nil
}

func (c *GroupConsumer) readNew(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    readBatchSize,
		Block:    c.block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}

	for _, s := range streams {
		for _, msg := range s.Messages {
			c.process(ctx, msg, 1)
		}
	}
	return nil
}

// reclaimPending claims messages idle past the redelivery delay and runs them
// again. Messages over the delivery budget are dead-lettered and acked.
func (c *GroupConsumer) reclaimPending(ctx context.Context) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Idle:   c.redelivery,
		Start:  "-",
		End:    "+",
		Count:  readBatchSize,
	}).Result()
	if err != nil || len(pending) == 0 {
		return
	}

	var ids []string
	deliveries := make(map[string]int64, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
		deliveries[p.ID] = p.RetryCount
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  c.redelivery,
		Messages: ids,
	}).Result()
	if err != nil {
		c.log.Errorf("bus: claim on %s failed: %v", c.stream, err)
		return
	}

	for _, msg := range claimed {
		count := deliveries[msg.ID]
		if count > c.maxDeliver {
			env := envelopeFromValues(msg.Values)
			c.mu.RLock()
			dead := c.deadLetter
			c.mu.RUnlock()
			if dead != nil {
				dead(ctx, env, count)
			}
			c.log.Errorf("bus: dropping message %s on %s after %d deliveries", msg.ID, c.stream, count)
			c.ack(ctx, msg.ID)
			continue
		}
		c.process(ctx, msg, count)
	}
}

func (c *GroupConsumer) process(ctx context.Context, msg redis.XMessage, delivery int64) {
	env := envelopeFromValues(msg.Values)

	c.mu.RLock()
	handlers := append([]Handler{}, c.handlers[env.Kind]...)
	handlers = append(handlers, c.handlers[kindAny]...)
	c.mu.RUnlock()

	if len(handlers) == 0 {
		c.ack(ctx, msg.ID)
		return
	}

	for _, h := range handlers {
		if err := h(ctx, env); err != nil {
			// Not acked: the pending entry stays and is reclaimed later.
			c.log.WarnCtx(ctx, "bus: handler for %s failed (delivery %d): %v", env.Kind, delivery, err)
			return
		}
	}
	c.ack(ctx, msg.ID)
}

func (c *GroupConsumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.log.Errorf("bus: ack %s on %s failed: %v", id, c.stream, err)
	}
}

func envelopeToValues(env events.Envelope) map[string]interface{} {
	return map[string]interface{}{
		"kind":           string(env.Kind),
		"aggregate_type": env.AggregateType,
		"aggregate_id":   env.AggregateID,
		"family":         env.Family,
		"occurred_at":    env.OccurredAt.UTC().Format(time.RFC3339Nano),
		"operation_id":   env.OperationID,
		"request_id":     env.RequestID,
		"trace_id":       env.TraceID,
		"payload":        string(env.Payload),
	}
}

func envelopeFromValues(values map[string]interface{}) events.Envelope {
	str := func(key string) string {
		if v, ok := values[key].(string); ok {
			return v
		}
		return ""
	}
	occurredAt, _ := time.Parse(time.RFC3339Nano, str("occurred_at"))
	return events.Envelope{
		Kind:          events.Kind(str("kind")),
		AggregateType: str("aggregate_type"),
		AggregateID:   str("aggregate_id"),
		Family:        str("family"),
		OccurredAt:    occurredAt,
		OperationID:   str("operation_id"),
		RequestID:     str("request_id"),
		TraceID:       str("trace_id"),
		Payload:       []byte(str("payload")),
	}
}
