// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package transcription

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/scribe-dev/scribe/pkg/health"
)

// DefaultCooldown is how long a failed backend is skipped before it is
// tried again.
const DefaultCooldown = 30 * time.Second

// HealthTracker tracks one backend's availability. A backend is healthy
// until RecordFailure; it then sits out a cooldown and becomes eligible
// again.
type HealthTracker struct {
	mu           sync.RWMutex
	clock        clock.Clock
	healthy      bool
	failedAt     time.Time
	cooldown     time.Duration
	failureCount int64
}

// NewHealthTracker returns a healthy tracker. The cooldown must be positive.
func NewHealthTracker(cooldown time.Duration, clk clock.Clock) (*HealthTracker, error) {
	if cooldown <= 0 {
		return nil, scribeerr.Errorf(scribeerr.CodeConfigValidateInvalidValue,
			"health tracker cooldown must be positive, got %s", cooldown)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &HealthTracker{healthy: true, cooldown: cooldown, clock: clk}, nil
}

// caller holds at least h.mu.RLock
func (h *HealthTracker) isHealthyLocked() bool {
	if h.healthy {
		return true
	}
	return h.clock.Since(h.failedAt) >= h.cooldown
}

func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.isHealthyLocked()
}

func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.healthy = true
	h.mu.Unlock()
}

func (h *HealthTracker) RecordFailure() {
	h.mu.Lock()
	h.healthy = false
	h.failedAt = h.clock.Now()
	h.failureCount++
	h.mu.Unlock()
}

// Metrics returns a point-in-time snapshot of the tracker.
func (h *HealthTracker) Metrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{FailureCount: h.failureCount, Available: h.isHealthyLocked()}
	if h.failureCount > 0 {
		t := h.failedAt
		m.LastFailureAt = &t
	}
	if !h.healthy {
		end := h.failedAt.Add(h.cooldown)
		m.CooldownUntil = &end
	}
	return m
}
