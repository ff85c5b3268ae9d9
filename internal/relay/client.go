package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Client is one websocket connection, pinned to a single family group.
type Client struct {
	ID     string
	UserID string
	Family string
	Conn   *websocket.Conn
	Send   chan []byte
	mu     sync.Mutex
}

func NewClient(conn *websocket.Conn, family, userID string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Family: family,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}
}

func (c *Client) Group() string {
	return FamilyGroup(c.Family)
}

// WriteLoop drains the Send channel onto the connection and keeps it alive
// with pings.
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.close()
			return
		case msg, ok := <-c.Send:
			if !ok {
				c.close()
				return
			}
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_ = c.Conn.WriteMessage(websocket.TextMessage, msg)
			c.mu.Unlock()
		case <-ticker.C:
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_ = c.Conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
		}
	}
}

// SendMessage queues msg without blocking; a slow client loses messages
// rather than stalling the broadcast.
func (c *Client) SendMessage(msg []byte) {
	select {
	case c.Send <- msg:
	default:
	}
}

func (c *Client) close() {
	c.mu.Lock()
	_ = c.Conn.Close()
	c.mu.Unlock()
}
