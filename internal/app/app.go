package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/leadwire/ghl-relay/internal/ghl"
	"github.com/leadwire/ghl-relay/internal/server"
	"github.com/leadwire/ghl-relay/internal/tokenstore"
)

// App orchestrates the lifecycle of the webhook server and related services.
type App struct {
	cfg    *Config
	server *server.Server
	store  tokenstore.Store
}

// New creates a new App instance, wiring the token store, token manager,
// authenticated client, and webhook server together. No token I/O is
// performed until the first authenticated request.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.Store.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	refresher := ghl.NewRefresher(cfg.GHL.TokenURL(), cfg.GHL.ClientID, cfg.GHL.ClientSecret, nil)
	manager := ghl.NewTokenManager(store, refresher, cfg.GHL.ClientID)
	client := ghl.NewClient(cfg.GHL.BaseURL, manager, nil)
	service := ghl.NewService(client, slog.Default())
	authorizer := ghl.NewAuthorizer(cfg.GHL.ClientID, cfg.GHL.ClientSecret, cfg.GHL.RedirectURI)

	srv := server.New(service, manager, authorizer, slog.Default())

	return &App{
		cfg:    cfg,
		server: srv,
		store:  store,
	}, nil
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection
// for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting webhook server", "address", address)
	serverErrCh, err := a.server.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("server startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.server.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "server runtime error", "error", err)
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if closer, ok := a.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.ErrorContext(shutdownCtx, "token store close failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
