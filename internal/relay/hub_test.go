package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocerly/internal/events"
	"grocerly/pkg/logger"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	hub := startHub(t)

	alice := NewClient(nil, "fam-1", "alice")
	bob := NewClient(nil, "fam-1", "bob")
	carol := NewClient(nil, "fam-2", "carol")

	hub.Register(alice)
	hub.Register(bob)
	hub.Register(carol)
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, hub.GroupSize(FamilyGroup("fam-1")))
	assert.Equal(t, 1, hub.GroupSize(FamilyGroup("fam-2")))

	hub.Broadcast(FamilyGroup("fam-1"), []byte("hello"))
	assert.Equal(t, "hello", string(<-alice.Send))
	assert.Equal(t, "hello", string(<-bob.Send))
	select {
	case msg := <-carol.Send:
		t.Fatalf("fam-2 client received fam-1 broadcast: %s", msg)
	default:
	}

	hub.Unregister(alice)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.GroupSize(FamilyGroup("fam-1")))

	_, open := <-alice.Send
	assert.False(t, open, "unregistered client's channel should be closed")
}

func TestHub_UnregisterUnknownClientIsNoop(t *testing.T) {
	hub := startHub(t)

	ghost := NewClient(nil, "fam-1", "ghost")
	hub.Unregister(ghost)

	member := NewClient(nil, "fam-1", "member")
	hub.Register(member)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestHub_SlowClientDropsInsteadOfBlocking(t *testing.T) {
	hub := startHub(t)

	slow := NewClient(nil, "fam-1", "slow")
	hub.Register(slow)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	for i := 0; i < cap(slow.Send)+10; i++ {
		hub.Broadcast(FamilyGroup("fam-1"), []byte("tick"))
	}
	assert.Equal(t, cap(slow.Send), len(slow.Send))
}

func TestBridge_FansOutToFamilyGroup(t *testing.T) {
	hub := startHub(t)
	bridge := NewBridge(hub, logger.New(logger.DevelopmentMode))

	alice := NewClient(nil, "fam-1", "alice")
	carol := NewClient(nil, "fam-2", "carol")
	hub.Register(alice)
	hub.Register(carol)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		time.Second, 5*time.Millisecond)

	env := events.Envelope{
		Kind:          events.KindItemCreated,
		AggregateType: events.AggregateItem,
		AggregateID:   "sku-1",
		Family:        "fam-1",
		OccurredAt:    time.Now().UTC(),
	}
	require.NoError(t, bridge.handle(context.Background(), env))

	raw := <-alice.Send
	var got events.Envelope
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, events.KindItemCreated, got.Kind)
	assert.Equal(t, "fam-1", got.Family)

	select {
	case msg := <-carol.Send:
		t.Fatalf("fam-2 client received fam-1 event: %s", msg)
	default:
	}
}

func TestBridge_DropsEnvelopeWithoutFamily(t *testing.T) {
	hub := startHub(t)
	bridge := NewBridge(hub, logger.New(logger.DevelopmentMode))

	member := NewClient(nil, "fam-1", "member")
	hub.Register(member)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	env := events.Envelope{Kind: events.KindItemCreated}
	require.NoError(t, bridge.handle(context.Background(), env))
	assert.Empty(t, member.Send)
}
