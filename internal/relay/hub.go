// Package relay fans consumed domain events out to connected websocket
// clients, grouped by family. It carries no business logic: whatever arrives
// on the bus is forwarded verbatim to the family's broadcast group.
package relay

import (
	"context"
	"sync"
)

// Hub manages websocket client connections and their family broadcast groups.
type Hub struct {
	mu sync.RWMutex

	clients map[string]*Client
	groups  map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register adds a client to the hub and its family's broadcast group.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast sends payload to every client of one family group.
func (h *Hub) Broadcast(group string, payload []byte) {
	h.mu.RLock()
	for c := range h.groups[group] {
		c.SendMessage(payload)
	}
	h.mu.RUnlock()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	group := client.Group()
	if _, ok := h.groups[group]; !ok {
		h.groups[group] = make(map[*Client]struct{})
	}
	h.groups[group][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	group := client.Group()
	if members, ok := h.groups[group]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

// FamilyGroup names the broadcast group for one tenant.
func FamilyGroup(family string) string {
	return "family:" + family
}
