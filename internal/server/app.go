// Package server wires the Corkboard backend together: the PostgreSQL-backed
// note store, the REST API, and the WebSocket relay, optionally bridged
// across instances through Redis pub/sub.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/corkboard/internal/logging"
	"github.com/dmitrijs2005/corkboard/internal/server/config"
	"github.com/dmitrijs2005/corkboard/internal/server/httpapi"
	"github.com/dmitrijs2005/corkboard/internal/server/relay"
	"github.com/dmitrijs2005/corkboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/corkboard/internal/server/services"
	"github.com/dmitrijs2005/corkboard/internal/server/session"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	noteService *services.NoteService
	relay       *relay.Relay
	bridge      *relay.RedisBridge
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	l := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(l)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	ns := services.NewNoteService(db, rm, cfg)

	var bridge *relay.RedisBridge
	var relayBridge relay.Bridge
	if cfg.RedisAddr != "" {
		instanceID := cfg.InstanceID
		if instanceID == "" {
			instanceID = uuid.NewString()
		}
		bridge, err = relay.NewRedisBridge(ctx, cfg.RedisAddr, instanceID, logger)
		if err != nil {
			return nil, fmt.Errorf("redis bridge error: %w", err)
		}
		relayBridge = bridge
	}

	rl := relay.New(session.NewRegistry(), logger, relayBridge)

	return &App{config: cfg, logger: logger, db: db, noteService: ns, relay: rl, bridge: bridge}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	api := httpapi.NewHandler(app.noteService, app.logger, app.config.SecretKey, app.config.TokenValidityDuration)
	router := api.Router()
	router.Handle("/ws", relay.NewHandler(app.relay, app.logger))

	srv := &http.Server{Addr: app.config.EndpointAddr, Handler: router}

	var wg sync.WaitGroup

	if app.bridge != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := app.bridge.Run(ctx, app.relay.DeliverRemote)
			if err != nil && !errors.Is(err, context.Canceled) {
				app.logger.Error(ctx, err.Error())
				cancelFunc()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.logger.Info(ctx, "Starting HTTP endpoint...", "addr", app.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, err.Error())
	}

	wg.Wait()

	if app.bridge != nil {
		if err := app.bridge.Close(); err != nil {
			app.logger.Error(shutdownCtx, err.Error())
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(shutdownCtx, err.Error())
	}

	app.logger.Info(shutdownCtx, "Shutdown complete")
}
