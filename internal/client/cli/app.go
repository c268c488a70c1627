// Package cli implements the interactive Corkboard terminal client: a REPL
// over the shared canvas driving the reconciliation store, the viewport
// controller and the presence throttler.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/corkboard/internal/client/api"
	"github.com/dmitrijs2005/corkboard/internal/client/config"
	"github.com/dmitrijs2005/corkboard/internal/client/presence"
	"github.com/dmitrijs2005/corkboard/internal/client/relay"
	"github.com/dmitrijs2005/corkboard/internal/client/store"
	"github.com/dmitrijs2005/corkboard/internal/client/viewport"
	"github.com/dmitrijs2005/corkboard/internal/logging"
	"github.com/dmitrijs2005/corkboard/internal/protocol"
)

// Terminal clients pretend to be an 800x600 viewport for the coordinate
// math. Screen-space inputs to the cursor/pan/zoom commands are interpreted
// inside this rectangle.
const (
	viewportWidth  = 800.0
	viewportHeight = 600.0
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	api      *api.Client
	relay    *relay.Client
	store    *store.Store
	view     *viewport.Controller
	presence *presence.Throttler

	participantID string
	displayName   string
	reader        *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	// REPL output owns stdout; structured logs go to stderr.
	l := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	logger := logging.NewSlogLogger(l)

	return &App{
		config:        c,
		logger:        logger,
		api:           api.New(c.ServerEndpointAddr, c.RequestTimeout),
		view:          viewport.NewController(viewportWidth, viewportHeight),
		participantID: uuid.NewString(),
		reader:        bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.api.Token() != ""
}

// join wires up the room-scoped collaborators once an identity is known:
// the reconciliation store, the relay connection and the presence throttler.
func (a *App) join(ctx context.Context) error {
	a.store = store.New(a.config.RoomID, a.displayName, a, a.api, a.logger)

	join := protocol.JoinRoom{
		ParticipantID: a.participantID,
		RoomID:        a.config.RoomID,
		DisplayName:   a.displayName,
		CursorColor:   a.config.CursorColor,
	}
	a.relay = relay.New(a.config.RelayURL, join, a.store.ApplyRemote, a.logger)
	go a.relay.Run(ctx)

	a.presence = presence.NewThrottler(presence.DefaultInterval, func(x, y float64, ts time.Time) {
		err := a.relay.Emit(ctx, protocol.TypeCursorMove, protocol.CursorMove{
			X: x, Y: y, Timestamp: ts.UnixMilli(),
		})
		if err != nil {
			a.logger.Debug(ctx, "cursor emit skipped", "error", err)
		}
	})

	// Durable state is the source of truth on join.
	notes, err := a.api.ListNotes(ctx, a.config.RoomID)
	if err != nil {
		return err
	}
	a.store.Load(notes)
	return nil
}

// Emit satisfies store.Outbound by forwarding to the relay connection.
func (a *App) Emit(ctx context.Context, t protocol.Type, payload any) error {
	return a.relay.Emit(ctx, t, payload)
}

func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.Root(ctx)
}
