// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package health supervises the messaging session: it tracks readiness and
// activity, probes the transport on a fixed interval, and schedules
// re-initialization or a process restart when the session is stale or broken.
//
// Decisions are returned as RecoveryAction values and executed separately so
// they can be tested without real timers or real process exits.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	pkghealth "github.com/scribe-dev/scribe/pkg/health"
)

// ConnectedState is the transport state reported by a healthy session.
const ConnectedState = "CONNECTED"

// ReasonNavigation is the disconnect reason that gets the short reinit delay.
const ReasonNavigation = "NAVIGATION"

// ProbeFunc asks the transport for its current connection state.
type ProbeFunc func(ctx context.Context) (string, error)

// Recoverer carries out recovery actions.
type Recoverer interface {
	// Reinitialize tears down and re-establishes the session in-process.
	Reinitialize(ctx context.Context) error
	// Restart terminates the process with code so a supervisor relaunches it.
	Restart(code int)
}

// Observer receives supervisor events, typically for metrics.
type Observer interface {
	HealthCheck(result string)
	RecoveryScheduled(kind ActionKind)
	ReadyChanged(ready bool)
}

type nopObserver struct{}

func (nopObserver) HealthCheck(string)           {}
func (nopObserver) RecoveryScheduled(ActionKind) {}
func (nopObserver) ReadyChanged(bool)            {}

// Config holds the supervisor thresholds.
type Config struct {
	CheckInterval         time.Duration
	StaleAfter            time.Duration
	NotReadyRestartAfter  time.Duration
	RestartGrace          time.Duration
	FatalRestartGrace     time.Duration
	NavigationReinitDelay time.Duration
	ReinitDelay           time.Duration
	ProbeTimeout          time.Duration
	FatalSignatures       []string
	ExitCode              int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		CheckInterval:         10 * time.Minute,
		StaleAfter:            2 * time.Hour,
		NotReadyRestartAfter:  30 * time.Minute,
		RestartGrace:          2 * time.Second,
		FatalRestartGrace:     5 * time.Second,
		NavigationReinitDelay: 5 * time.Second,
		ReinitDelay:           10 * time.Second,
		ProbeTimeout:          30 * time.Second,
		FatalSignatures:       []string{"Session closed", "Protocol error"},
		ExitCode:              1,
	}
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClock replaces the wall clock, for tests.
func WithClock(clk clock.Clock) Option {
	return func(s *Supervisor) { s.clock = clk }
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(s *Supervisor) {
		if o != nil {
			s.observer = o
		}
	}
}

// Supervisor owns the session State and decides on recovery.
type Supervisor struct {
	cfg       Config
	state     *State
	probe     ProbeFunc
	recoverer Recoverer
	clock     clock.Clock
	observer  Observer

	mu          sync.Mutex
	lastCheckAt time.Time
	lastProbe   *pkghealth.ProbeReport
	pending     *scheduled
}

type scheduled struct {
	action RecoveryAction
	timer  *clock.Timer
}

// NewSupervisor creates a Supervisor. The State it manages is created here
// and exposed through State so handlers share the same instance.
func NewSupervisor(cfg Config, probe ProbeFunc, recoverer Recoverer, opts ...Option) (*Supervisor, error) {
	if probe == nil {
		return nil, scribeerr.New(scribeerr.CodeConfigValidateInvalidValue, "health: probe is required")
	}
	if recoverer == nil {
		return nil, scribeerr.New(scribeerr.CodeConfigValidateInvalidValue, "health: recoverer is required")
	}
	if cfg.CheckInterval <= 0 {
		return nil, scribeerr.Errorf(scribeerr.CodeConfigValidateInvalidValue,
			"health: check interval must be positive, got %s", cfg.CheckInterval)
	}
	if cfg.ExitCode == 0 {
		cfg.ExitCode = 1
	}

	s := &Supervisor{
		cfg:       cfg,
		probe:     probe,
		recoverer: recoverer,
		clock:     clock.New(),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = NewState(s.clock)

	return s, nil
}

// State returns the shared session state.
func (s *Supervisor) State() *State { return s.state }

// Interval returns how often RunHealthCheck should be invoked.
func (s *Supervisor) Interval() time.Duration { return s.cfg.CheckInterval }

// Clock returns the supervisor's time source.
func (s *Supervisor) Clock() clock.Clock { return s.clock }

// OnReady handles the session ready event.
func (s *Supervisor) OnReady() {
	if !s.state.markReady() {
		slog.Warn("session ready while restart is pending, ignoring")
		return
	}
	s.cancelPending(ActionReinitialize)
	s.observer.ReadyChanged(true)
	slog.Info("session ready", "status", s.state.Status())
}

// Touch records activity from a session event or inbound message.
func (s *Supervisor) Touch() {
	s.state.Touch()
}

// OnDisconnected handles a transport disconnect and schedules re-initialization.
func (s *Supervisor) OnDisconnected(ctx context.Context, reason string) RecoveryAction {
	now := s.clock.Now()
	_, _, last := s.state.view()
	wasReady := s.state.markNotReady()
	if wasReady {
		s.observer.ReadyChanged(false)
	}

	slog.Warn("session disconnected",
		"reason", reason,
		"timestamp", now.Format(time.RFC3339),
		"was_ready", wasReady,
		"since_last_activity", now.Sub(last).Round(time.Second).String(),
	)

	action := DecideDisconnect(s.cfg, reason)
	s.Execute(ctx, action)
	return action
}

// OnAuthFailure handles a rejected session: the process exits at once so
// the operator can re-pair.
func (s *Supervisor) OnAuthFailure(ctx context.Context, msg string) RecoveryAction {
	slog.Error("session authentication failed", "error", msg)
	if s.state.markNotReady() {
		s.observer.ReadyChanged(false)
	}
	action := RestartAfter(0, "authentication failure: "+msg)
	s.Execute(ctx, action)
	return action
}

// RunHealthCheck evaluates liveness once and executes the resulting action.
func (s *Supervisor) RunHealthCheck(ctx context.Context) RecoveryAction {
	action := s.Evaluate(ctx)
	s.Execute(ctx, action)
	return action
}

// Evaluate performs one health check and returns the recovery decision
// without executing it. It never fails: probe errors and panics are
// folded into the decision.
func (s *Supervisor) Evaluate(ctx context.Context) RecoveryAction {
	now := s.clock.Now()
	ready, restarting, last := s.state.view()
	elapsed := now.Sub(last)

	s.mu.Lock()
	s.lastCheckAt = now
	s.mu.Unlock()

	if restarting {
		slog.Debug("health check skipped, restart pending")
		s.observer.HealthCheck("restarting")
		return None()
	}

	status := pkghealth.StatusNotReady
	if ready {
		status = pkghealth.StatusReady
	}
	slog.Info("health check",
		"status", status,
		"minutes_since_activity", int(elapsed.Minutes()),
	)

	if ready && elapsed > s.cfg.StaleAfter {
		slog.Warn("no session activity for a long time",
			"minutes_since_activity", int(elapsed.Minutes()),
			"threshold", s.cfg.StaleAfter.String(),
		)
	}

	if !ready && elapsed > s.cfg.NotReadyRestartAfter {
		slog.Error("session not ready for too long, restarting",
			"minutes_since_activity", int(elapsed.Minutes()),
			"threshold", s.cfg.NotReadyRestartAfter.String(),
		)
		s.observer.HealthCheck("not_ready_timeout")
		return RestartAfter(s.cfg.RestartGrace,
			fmt.Sprintf("not ready for %s", elapsed.Round(time.Second)))
	}

	if !ready {
		s.observer.HealthCheck("not_ready")
		return None()
	}

	result := s.runProbe(ctx)
	s.recordProbe(now, result)

	switch result.Kind {
	case ProbeConnected:
		s.observer.HealthCheck("connected")
		return None()

	case ProbeDisconnected:
		// A reachable transport in a non-connected state is reported only.
		slog.Warn("session state is not connected", "state", result.State)
		s.observer.HealthCheck("unexpected_state")
		return None()

	default:
		if s.state.markNotReady() {
			s.observer.ReadyChanged(false)
		}
		slog.Error("session probe failed", "error", result.Err)

		if sig, ok := MatchFatal(result.Err, s.cfg.FatalSignatures); ok {
			slog.Error("fatal session fault detected, restarting", "signature", sig)
			s.observer.HealthCheck("fatal")
			return RestartAfter(s.cfg.FatalRestartGrace, "fatal session fault: "+sig)
		}
		s.observer.HealthCheck("probe_failed")
		return None()
	}
}

// runProbe calls the probe with a timeout and converts panics into errors.
func (s *Supervisor) runProbe(ctx context.Context) (result ProbeResult) {
	if s.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = s.clock.WithTimeout(ctx, s.cfg.ProbeTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result = ProbeFailed(scribeerr.Errorf(scribeerr.CodeSessionProbeFailure, "probe panicked: %v", r))
		}
	}()

	state, err := s.probe(ctx)
	if err != nil {
		return ProbeFailed(err)
	}
	if state != ConnectedState {
		return Disconnected(state)
	}
	return Connected()
}

func (s *Supervisor) recordProbe(at time.Time, r ProbeResult) {
	report := &pkghealth.ProbeReport{At: at, Result: r.Kind.String(), State: r.State}
	if r.Err != nil {
		report.Error = r.Err.Error()
	}
	s.mu.Lock()
	s.lastProbe = report
	s.mu.Unlock()
}

// Execute schedules action on the supervisor clock. A pending restart
// supersedes everything; reinitializations while a restart is pending are
// dropped.
func (s *Supervisor) Execute(ctx context.Context, action RecoveryAction) {
	switch action.Kind {
	case ActionNone:
		return

	case ActionReinitialize:
		if s.state.Restarting() {
			slog.Debug("reinitialize skipped, restart pending", "reason", action.Reason)
			return
		}
		slog.Info("scheduling session reinitialize", "delay", action.Delay.String(), "reason", action.Reason)
		s.observer.RecoveryScheduled(action.Kind)
		s.schedule(action, func() {
			if ctx.Err() != nil || s.state.Restarting() {
				return
			}
			slog.Info("reinitializing session", "reason", action.Reason)
			if err := s.recoverer.Reinitialize(ctx); err != nil {
				slog.Error("session reinitialize failed", "error", err)
			}
		})

	case ActionRestart:
		if !s.state.markRestarting() {
			slog.Debug("restart already pending", "reason", action.Reason)
			return
		}
		s.observer.ReadyChanged(false)
		s.observer.RecoveryScheduled(action.Kind)
		slog.Error("scheduling process restart",
			"delay", action.Delay.String(),
			"reason", action.Reason,
			"exit_code", s.cfg.ExitCode,
		)
		s.cancelPending(ActionReinitialize)
		code := s.cfg.ExitCode
		s.schedule(action, func() { s.recoverer.Restart(code) })
	}
}

// schedule arms a timer for fn. A newer reinitialize replaces an older one,
// so a burst of disconnects yields a single reinit.
func (s *Supervisor) schedule(action RecoveryAction, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil && s.pending.action.Kind == ActionReinitialize {
		s.pending.timer.Stop()
	}

	entry := &scheduled{action: action}
	entry.timer = s.clock.AfterFunc(action.Delay, func() {
		s.mu.Lock()
		if s.pending == entry {
			s.pending = nil
		}
		s.mu.Unlock()
		fn()
	})
	s.pending = entry
}

// cancelPending stops a scheduled action of the given kind.
func (s *Supervisor) cancelPending(kind ActionKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil && s.pending.action.Kind == kind {
		s.pending.timer.Stop()
		s.pending = nil
	}
}

// Snapshot returns the state plus the last check and probe.
func (s *Supervisor) Snapshot() pkghealth.Snapshot {
	snap := s.state.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastCheckAt.IsZero() {
		t := s.lastCheckAt
		snap.LastCheckAt = &t
	}
	if s.lastProbe != nil {
		p := *s.lastProbe
		snap.LastProbe = &p
	}
	if s.pending != nil {
		snap.PendingRecovery = s.pending.action.String()
	}
	return snap
}

// MatchFatal reports the first signature contained in err's message.
func MatchFatal(err error, signatures []string) (string, bool) {
	if err == nil {
		return "", false
	}
	msg := err.Error()
	for _, sig := range signatures {
		if sig != "" && strings.Contains(msg, sig) {
			return sig, true
		}
	}
	return "", false
}
