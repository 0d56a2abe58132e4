package websocket

import (
	"context"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one open connection of a signed-in owner. Incoming frames are
// ignored; the connection only carries change notifications outward.
type Client struct {
	hub     *Hub
	conn    *ws.Conn
	ownerID int64
	send    chan []byte

	// slow is closed by the hub when send overflows.
	slow     chan struct{}
	slowOnce sync.Once
}

func NewClient(hub *Hub, conn *ws.Conn, ownerID int64) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		ownerID: ownerID,
		send:    make(chan []byte, sendBufferSize),
		slow:    make(chan struct{}),
	}
}

// Run registers the client and writes published messages until the peer
// disconnects, ctx ends, or the client falls behind.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx = c.conn.CloseRead(ctx)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				return
			}
		case <-c.slow:
			c.conn.Close(ws.StatusPolicyViolation, "connection too slow to keep up with updates")
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}

func (c *Client) markSlow() {
	c.slowOnce.Do(func() { close(c.slow) })
}
