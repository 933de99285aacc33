// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package server exposes the bot's local status API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/scribe-dev/scribe/pkg/health"
)

// StatusSource reports the session supervisor's state.
type StatusSource interface {
	Snapshot() health.Snapshot
}

// ProviderSource reports transcription backend health.
type ProviderSource interface {
	Health() map[string]health.Metrics
}

// RequestRecorder records per-request metrics.
type RequestRecorder interface {
	RecordHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string

	Status    StatusSource
	Providers ProviderSource
	// Metrics is served at /metrics when set.
	Metrics  http.Handler
	Recorder RequestRecorder
	Clock    clock.Clock
}

// Server wraps a chi router with a huma API and an HTTP server.
type Server struct {
	router    chi.Router
	api       huma.API
	cfg       Config
	startedAt time.Time
}

// New creates a Server with the status routes registered.
func New(cfg Config) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, scribeerr.New(scribeerr.CodeServerConfigInvalid, "listen address is required")
	}
	if cfg.Status == nil {
		return nil, scribeerr.New(scribeerr.CodeServerConfigInvalid, "status source is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware(cfg.CORSOrigins))
	if cfg.Recorder != nil {
		r.Use(recordRequests(cfg.Recorder, cfg.Clock))
	}

	humaConfig := huma.DefaultConfig("Scribe", cfg.Version)
	humaConfig.Info.Description = "Voice-note transcription relay status API"
	api := humachi.New(r, humaConfig)

	srv := &Server{
		router:    r,
		api:       api,
		cfg:       cfg,
		startedAt: cfg.Clock.Now(),
	}
	srv.registerRoutes()

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	return srv, nil
}

// API returns the huma API, used to extract the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return scribeerr.Wrapf(err, scribeerr.CodeServerStartFailure, "listening on %s", s.cfg.ListenAddr)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	slog.Info("status server listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return scribeerr.Wrap(err, scribeerr.CodeServerStartFailure, "serving")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return scribeerr.Wrap(err, scribeerr.CodeServerShutdownFailure, "shutting down")
	}

	return <-errCh
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}

// recordRequests reports each request under its chi route pattern so path
// parameters do not explode label cardinality.
func recordRequests(rec RequestRecorder, clk clock.Clock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := clk.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			rec.RecordHTTPRequest(r.Method, route, status, clk.Since(start))
		})
	}
}
