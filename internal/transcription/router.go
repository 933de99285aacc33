// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package transcription

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/scribe-dev/scribe/pkg/health"
)

// Observer receives the outcome of every backend attempt.
type Observer interface {
	TranscriptionAttempted(provider string, elapsed time.Duration, err error)
}

// Router is a Transcriber that walks an ordered backend chain, skipping
// backends in cooldown and failing over on upstream errors.
type Router struct {
	mu       sync.RWMutex
	clock    clock.Clock
	cooldown time.Duration
	timeout  time.Duration
	order    []string
	backends map[string]Transcriber
	trackers map[string]*HealthTracker
	observer Observer
}

var _ Transcriber = (*Router)(nil)

type RouterOption func(*Router)

func WithClock(clk clock.Clock) RouterOption {
	return func(r *Router) { r.clock = clk }
}

// WithTimeout bounds each backend attempt.
func WithTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.timeout = d }
}

func WithCooldown(d time.Duration) RouterOption {
	return func(r *Router) { r.cooldown = d }
}

func WithObserver(o Observer) RouterOption {
	return func(r *Router) { r.observer = o }
}

func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		clock:    clock.New(),
		cooldown: DefaultCooldown,
		backends: make(map[string]Transcriber),
		trackers: make(map[string]*HealthTracker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends a backend to the chain. Registration order is failover
// order; registering a name twice replaces the backend in place.
func (r *Router) Register(t Transcriber) error {
	tracker, err := NewHealthTracker(r.cooldown, r.clock)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if !slices.Contains(r.order, name) {
		r.order = append(r.order, name)
	}
	r.backends[name] = t
	r.trackers[name] = tracker
	return nil
}

func (r *Router) Name() string { return "router" }

// Providers returns backend names in failover order.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Health returns a snapshot per backend.
func (r *Router) Health() map[string]health.Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]health.Metrics, len(r.trackers))
	for name, tr := range r.trackers {
		out[name] = tr.Metrics()
	}
	return out
}

func (r *Router) Transcribe(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	r.mu.RLock()
	order := slices.Clone(r.order)
	r.mu.RUnlock()

	if len(order) == 0 {
		return "", scribeerr.New(scribeerr.CodeTranscriptionNotFound, "no transcription provider registered")
	}

	// With every backend cooling down the primary is still tried, so a
	// single-provider router never refuses a request.
	candidates := make([]string, 0, len(order))
	for _, name := range order {
		r.mu.RLock()
		healthy := r.trackers[name].IsHealthy()
		r.mu.RUnlock()
		if healthy {
			candidates = append(candidates, name)
		} else {
			slog.Debug("skipping transcription provider in cooldown", "provider", name)
		}
	}
	if len(candidates) == 0 {
		candidates = order[:1]
	}

	var lastErr error
	for _, name := range candidates {
		r.mu.RLock()
		backend, tracker := r.backends[name], r.trackers[name]
		r.mu.RUnlock()

		text, err := r.attempt(ctx, backend, req)
		if err == nil {
			tracker.RecordSuccess()
			return text, nil
		}
		lastErr = err

		// A rejected request fails the same way everywhere.
		if scribeerr.IsInvalidInput(err) {
			return "", err
		}
		tracker.RecordFailure()
		if ctx.Err() != nil {
			return "", scribeerr.Wrap(ctx.Err(), scribeerr.CodeTranscriptionRequestTimeout,
				"transcription cancelled", scribeerr.FieldProvider(name))
		}
		switch {
		case scribeerr.IsUnauthorized(err):
			slog.Error("transcription provider rejected its API key", "provider", name, "error", err)
		case scribeerr.IsUpstreamFailure(err):
			slog.Warn("transcription provider failed", "provider", name, "error", err)
		default:
			slog.Warn("transcription provider failed", "provider", name, "code", scribeerr.CodeOf(err), "error", err)
		}
	}

	return "", scribeerr.With(lastErr, scribeerr.Field("attempted", len(candidates)))
}

func (r *Router) attempt(ctx context.Context, backend Transcriber, req Request) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = r.clock.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := r.clock.Now()
	text, err := backend.Transcribe(ctx, req)
	if r.observer != nil {
		r.observer.TranscriptionAttempted(backend.Name(), r.clock.Since(start), err)
	}
	if err != nil {
		return "", err
	}
	return Clean(text), nil
}
