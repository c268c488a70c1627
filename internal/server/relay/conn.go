package relay

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/corkboard/internal/logging"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Outbound queue depth per connection. A peer that falls this far
	// behind is treated as a slow consumer and dropped.
	sendQueueSize = 256
)

// Conn wraps one upgraded websocket connection. A single readPump goroutine
// preserves per-connection frame ordering; writePump drains the outbound
// queue filled by non-blocking fan-out sends.
type Conn struct {
	id     string
	sock   *websocket.Conn
	relay  *Relay
	logger logging.Logger

	send      chan []byte
	closeOnce sync.Once
}

func newConn(id string, sock *websocket.Conn, relay *Relay, logger logging.Logger) *Conn {
	return &Conn{
		id:     id,
		sock:   sock,
		relay:  relay,
		logger: logger.With("conn", id),
		send:   make(chan []byte, sendQueueSize),
	}
}

// TrySend enqueues a frame without blocking.
func (c *Conn) TrySend(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close shuts the outbound queue; writePump then closes the socket, which
// in turn unblocks readPump.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Conn) readPump(ctx context.Context) {
	defer func() {
		c.relay.Detach(ctx, c.id)
		c.Close()
		_ = c.sock.Close()
	}()

	c.sock.SetReadLimit(maxFrameSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn(ctx, "read error", "error", err)
			}
			return
		}
		c.relay.HandleFrame(ctx, c.id, raw)
	}
}

func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.sock.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug(ctx, "write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

const maxFrameSize = 64 * 1024
