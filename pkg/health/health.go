// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package health holds the JSON-safe snapshots served by the status API and
// rendered by the CLI.
package health

import "time"

// Session status values.
const (
	StatusNotReady   = "NOT_READY"
	StatusReady      = "READY"
	StatusRestarting = "RESTARTING"
)

// Snapshot is a point-in-time view of the session supervisor.
type Snapshot struct {
	Status          string       `json:"status" example:"READY" doc:"Supervisor state: NOT_READY, READY or RESTARTING"`
	Ready           bool         `json:"ready" doc:"Whether the session is connected and outbound sends are allowed"`
	LastActivityAt  time.Time    `json:"last_activity_at" doc:"Last session event or inbound message"`
	IdleSeconds     int64        `json:"idle_seconds" doc:"Seconds since the last activity"`
	LastCheckAt     *time.Time   `json:"last_check_at,omitempty" doc:"When the periodic health check last ran"`
	LastProbe       *ProbeReport `json:"last_probe,omitempty" doc:"Outcome of the most recent liveness probe"`
	PendingRecovery string       `json:"pending_recovery,omitempty" doc:"Scheduled recovery action, if any"`
}

// ProbeReport describes one liveness probe.
type ProbeReport struct {
	At     time.Time `json:"at"`
	Result string    `json:"result" example:"connected"`
	State  string    `json:"state,omitempty" example:"CONNECTED"`
	Error  string    `json:"error,omitempty"`
}

// Metrics exposes the current health of a transcription provider. All fields
// are point-in-time snapshots safe to serialize to JSON.
type Metrics struct {
	FailureCount  int64      `json:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	Available     bool       `json:"available"`
}
