// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package health

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	pkghealth "github.com/scribe-dev/scribe/pkg/health"
)

// State is the process-wide session liveness record. It is owned by the
// Supervisor and shared read-mostly with message handlers, which consult
// Ready before any outbound send.
type State struct {
	mu           sync.RWMutex
	clock        clock.Clock
	ready        bool
	restarting   bool
	lastActivity time.Time
}

// NewState returns a NOT_READY state whose activity clock starts now.
func NewState(clk clock.Clock) *State {
	if clk == nil {
		clk = clock.New()
	}
	return &State{clock: clk, lastActivity: clk.Now()}
}

// Ready reports whether outbound sends are currently allowed.
func (s *State) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready && !s.restarting
}

// LastActivity returns the time of the last session event or message.
func (s *State) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Restarting reports whether a process restart has been scheduled.
func (s *State) Restarting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restarting
}

// Status returns NOT_READY, READY or RESTARTING.
func (s *State) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *State) statusLocked() string {
	switch {
	case s.restarting:
		return pkghealth.StatusRestarting
	case s.ready:
		return pkghealth.StatusReady
	default:
		return pkghealth.StatusNotReady
	}
}

// Touch records activity without changing readiness.
func (s *State) Touch() {
	s.mu.Lock()
	s.lastActivity = s.clock.Now()
	s.mu.Unlock()
}

// markReady flips to READY and resets the activity clock. It returns false
// once a restart is pending.
func (s *State) markReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restarting {
		return false
	}
	s.ready = true
	s.lastActivity = s.clock.Now()
	return true
}

// markNotReady clears readiness and returns the previous value.
func (s *State) markNotReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.ready
	s.ready = false
	return was
}

// markRestarting enters the terminal state. Only the first call wins.
func (s *State) markRestarting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restarting {
		return false
	}
	s.restarting = true
	s.ready = false
	return true
}

func (s *State) view() (ready bool, restarting bool, last time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready, s.restarting, s.lastActivity
}

// Snapshot returns the JSON view of the state.
func (s *State) Snapshot() pkghealth.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pkghealth.Snapshot{
		Status:         s.statusLocked(),
		Ready:          s.ready && !s.restarting,
		LastActivityAt: s.lastActivity,
		IdleSeconds:    int64(s.clock.Since(s.lastActivity) / time.Second),
	}
}
