// Package server initializes and runs the API server: it loads config,
// selects the backing store, wires token verification and the HTTP
// surface, and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/willcounter/internal/logging"
	"github.com/dmitrijs2005/willcounter/internal/server/auth"
	"github.com/dmitrijs2005/willcounter/internal/server/config"
	"github.com/dmitrijs2005/willcounter/internal/server/httpapi"
	"github.com/dmitrijs2005/willcounter/internal/server/store"
	"github.com/dmitrijs2005/willcounter/internal/server/store/postgres"
	"github.com/dmitrijs2005/willcounter/internal/server/store/postgrest"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	server *http.Server
}

// newBacking selects the backing store implementation from config.
func newBacking(cfg *config.Config) (store.Backing, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := postgres.Open(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := postgres.RunMigrations(context.Background(), db); err != nil {
			return nil, fmt.Errorf("migration error: %w", err)
		}
		return postgres.NewRepository(db), nil
	case config.BackendREST:
		return postgrest.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.RemoteTimeout), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.StoreBackend)
	}
}

func NewApp() (*App, error) {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	cfg := config.LoadConfig()

	backing, err := newBacking(cfg)
	if err != nil {
		return nil, err
	}

	resilient := store.New(backing, logger)
	verifier := auth.NewVerifier(cfg.Auth0Domain, cfg.Auth0Audience, logger)
	api := httpapi.NewServer(resilient, verifier.Middleware, logger)

	srv := &http.Server{
		Addr:    cfg.EndpointAddr,
		Handler: api.Routes(),
	}

	return &App{config: cfg, logger: logger, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
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

	app.logger.Info(ctx, "Starting app...",
		"addr", app.config.EndpointAddr, "backend", app.config.StoreBackend)

	app.initSignalHandler(cancelFunc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "server error", "error", err.Error())
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}
}
