package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/leadwire/ghl-relay/internal/tokenstore"
)

// CRM is the subset of the GHL service the webhook handlers need.
type CRM interface {
	ContactPipeline(ctx context.Context, contactID string) string
	SendSMS(ctx context.Context, contactID, message string) bool
}

// Tokens persists a token pair obtained from the consent flow.
type Tokens interface {
	SetTokens(ctx context.Context, accessToken, refreshToken string) error
}

// Consent builds authorization URLs and exchanges authorization codes.
type Consent interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (tokenstore.TokenPair, error)
}

// processTimeout bounds the background handling of one webhook message
// (pipeline lookup plus SMS reply).
const processTimeout = 2 * time.Minute

// Server hosts the webhook relay HTTP endpoints.
type Server struct {
	crm     CRM
	tokens  Tokens
	consent Consent
	logger  *slog.Logger

	mux    *http.ServeMux
	server *http.Server
	wg     sync.WaitGroup // in-flight webhook processing
}

// Compile-time check that Server implements http.Handler
var _ http.Handler = (*Server)(nil)

// New creates a Server wired to the given collaborators.
func New(crm CRM, tokens Tokens, consent Consent, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		crm:     crm,
		tokens:  tokens,
		consent: consent,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /webhook", applyMiddlewares(http.HandlerFunc(s.handleWebhook),
		Logging(logger),
		RequestID,
		Recovery,
	))
	mux.Handle("GET /health", http.HandlerFunc(s.handleHealth))
	mux.Handle("GET /oauth/authorize", applyMiddlewares(http.HandlerFunc(s.handleAuthorize),
		Logging(logger),
		RequestID,
		Recovery,
	))
	mux.Handle("GET /oauth/callback", applyMiddlewares(http.HandlerFunc(s.handleCallback),
		Logging(logger),
		RequestID,
		Recovery,
	))
	s.mux = mux

	return s
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error
// channel. The caller is responsible for calling Shutdown() to stop the
// server.
func (s *Server) Start(ctx context.Context, address string) (<-chan error, error) {
	// Startup phase: Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  10 * time.Second, // Inbound: webhook payloads are small
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  90 * time.Second, // Keep-alive wait for next request from the CRM
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := s.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown: stop accepting requests, then drain
// in-flight webhook processing, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			// Graceful shutdown failed - force close
			_ = s.server.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("webhook processing still in flight: %w", ctx.Err())
	}
}
