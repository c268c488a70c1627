// Package relay maintains the client's WebSocket connection to the relay
// server, reconnecting with exponential backoff and re-declaring room
// membership after every reconnect.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/corkboard/internal/common"
	"github.com/dmitrijs2005/corkboard/internal/logging"
	"github.com/dmitrijs2005/corkboard/internal/protocol"
)

// EventHandler receives every inbound envelope, in arrival order.
type EventHandler func(ctx context.Context, env *protocol.Envelope)

// healthyThreshold is how long a session must survive for the reconnect
// backoff to reset.
const healthyThreshold = time.Minute

type Client struct {
	url     string
	join    protocol.JoinRoom
	handler EventHandler
	logger  logging.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	dialTimeout time.Duration
	backoffFn   func() backoff.BackOff
}

// New returns a relay client for url (e.g. "ws://host:8080/ws"). join is
// sent on every (re)connect so the server always knows the room.
func New(url string, join protocol.JoinRoom, handler EventHandler, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Client{
		url:         url,
		join:        join,
		handler:     handler,
		logger:      logger.With("module", "relay_client"),
		dialTimeout: 10 * time.Second,
		backoffFn: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = 0
			return bo
		},
	}
}

// Run connects and keeps the connection alive until ctx is cancelled. Each
// dropped session is retried with exponential backoff; a session that lived
// long enough resets the backoff.
func (c *Client) Run(ctx context.Context) error {
	bo := c.backoffFn()
	for {
		start := time.Now()
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) >= healthyThreshold {
			bo.Reset()
		}
		wait := bo.NextBackOff()
		c.logger.Warn(ctx, "relay connection lost, reconnecting", "error", err, "wait", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// session dials, joins, and reads until the connection fails or ctx ends.
func (c *Client) session(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.url, nil)
	cancel()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	// Membership is connection-scoped state on the server; it has to be
	// re-declared on every reconnect.
	if err := c.Emit(ctx, protocol.TypeJoinRoom, c.join); err != nil {
		return err
	}
	c.logger.Info(ctx, "joined room", "room", c.join.RoomID)

	// Close the socket when ctx ends so the blocking read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		env, err := protocol.Parse(frame)
		if err != nil {
			c.logger.Warn(ctx, "dropping malformed frame", "error", err)
			continue
		}
		c.handler(ctx, env)
	}
}

// Emit sends one event to the server. It fails with ErrRelayClosed while no
// connection is up; callers treat that as a volatile, non-fatal condition.
func (c *Client) Emit(ctx context.Context, t protocol.Type, payload any) error {
	frame, err := protocol.Encode(t, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return common.ErrRelayClosed
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}
