// Package server exposes the hub's HTTP surface: JSON query endpoints over
// the event store, the internal ingest endpoint the hook gateway posts to,
// and the websocket stream for live subscribers.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hookline/hookline/internal/hub"
	"github.com/hookline/hookline/internal/store"
)

// Options tune the HTTP server. Zero values take the documented defaults.
type Options struct {
	// BacklogLimit caps list responses when the client does not pass an
	// explicit limit.
	BacklogLimit int
	// WebSocketEnabled gates the /ws endpoint.
	WebSocketEnabled bool
	// PingInterval is the keepalive cadence on idle websocket
	// connections.
	PingInterval time.Duration
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

const (
	defaultBacklogLimit    = 100
	defaultPingInterval    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	maxListLimit           = 1000
)

// Deps holds the dependencies for the hub server.
type Deps struct {
	Store  store.EventStore
	Hub    hub.Broadcaster
	Logger *slog.Logger
}

// Server serves the hub's HTTP API.
type Server struct {
	deps Deps
	opts Options
	http *http.Server
}

// New creates a Server with defaults applied.
func New(deps Deps, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if opts.BacklogLimit <= 0 {
		opts.BacklogLimit = defaultBacklogLimit
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Server{deps: deps, opts: opts}
}

// Handler returns the HTTP handler for all hub routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/events/recent", s.handleRecentEvents)
		r.Get("/events/by-type", s.handleEventsByType)
		r.Get("/events/range", s.handleEventsInRange)
		r.Get("/events/{id}", s.handleGetEvent)
		r.Get("/sessions/{sessionID}/events", s.handleSessionEvents)
		r.Get("/statistics", s.handleStatistics)
	})

	r.Post("/internal/events", s.handleIngest)

	if s.opts.WebSocketEnabled {
		r.Get("/ws", s.handleWebSocket)
	}

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	s.deps.Logger.InfoContext(ctx, "hub listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
