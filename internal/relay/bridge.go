package relay

import (
	"context"
	"encoding/json"

	"grocerly/internal/bus"
	"grocerly/internal/events"
	"grocerly/pkg/logger"
)

// Bridge forwards every envelope a consumer delivers to the family's
// broadcast group, unmodified.
type Bridge struct {
	hub *Hub
	log *logger.Logger
}

func NewBridge(hub *Hub, log *logger.Logger) *Bridge {
	return &Bridge{hub: hub, log: log}
}

// Attach registers the bridge on consumers for every stream the notifier
// follows.
func (b *Bridge) Attach(consumers ...*bus.GroupConsumer) {
	for _, c := range consumers {
		c.SubscribeAll(b.handle)
	}
}

func (b *Bridge) handle(ctx context.Context, env events.Envelope) error {
	if env.Family == "" {
		b.log.WarnCtx(ctx, "relay: dropping %s without family", env.Kind)
		return nil
	}
	raw, err := json.Marshal(env)
	if err != nil {
		b.log.ErrorCtx(ctx, "relay: marshal %s failed: %v", env.Kind, err)
		return nil
	}
	b.hub.Broadcast(FamilyGroup(env.Family), raw)
	return nil
}
