package relay

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/corkboard/internal/logging"
)

// Handler upgrades HTTP requests on the real-time endpoint to websocket
// connections and hands them to the relay.
type Handler struct {
	relay    *Relay
	logger   logging.Logger
	upgrader websocket.Upgrader
}

func NewHandler(r *Relay, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Handler{
		relay:  r,
		logger: logger.With("module", "relay_handler"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks belong to the deployment's reverse proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "upgrade failed", "error", err)
		return
	}

	// Connection identity is server-assigned and stable for the
	// connection's lifetime; it is distinct from the application-level
	// participant identity supplied on join_room.
	connID := uuid.NewString()
	c := newConn(connID, sock, h.relay, h.logger)
	h.relay.Attach(connID, c)

	h.logger.Debug(r.Context(), "connection established", "conn", connID)

	// The pumps outlive the HTTP handler; the request context dies when
	// ServeHTTP returns, so they run against the background context.
	ctx := context.Background()
	go c.writePump(ctx)
	go c.readPump(ctx)
}
