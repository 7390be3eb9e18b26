package realtime

import (
	"sync"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Client is one live authenticated connection. Identity and the support
// capability are resolved once at handshake time and never re-derived per
// event.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	ConnID string
	UserID int64
	Role   string
	Staff  bool

	send      chan []byte
	closeOnce sync.Once

	// rooms is the reverse index of joined room keys; guarded by hub.mu.
	rooms map[string]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, role string, staff bool) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		ConnID: uuid.NewString(),
		UserID: userID,
		Role:   role,
		Staff:  staff,
		send:   make(chan []byte, 32),
		rooms:  make(map[string]struct{}),
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Enqueue queues a frame for this specific connection, dropping it when the
// buffer is full. Replies to a request ride on this so only the requesting
// device sees them.
func (c *Client) Enqueue(payload []byte) {
	defer func() {
		// Losing a frame to a concurrently closed channel is acceptable;
		// the connection is already gone.
		_ = recover()
	}()
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
