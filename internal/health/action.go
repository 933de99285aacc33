// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package health

import (
	"fmt"
	"time"
)

// ActionKind identifies a recovery step.
type ActionKind string

const (
	ActionNone         ActionKind = "none"
	ActionReinitialize ActionKind = "reinitialize"
	ActionRestart      ActionKind = "restart"
)

// RecoveryAction is a supervisor decision: nothing, re-initialize the
// session after Delay, or restart the process after Delay.
type RecoveryAction struct {
	Kind   ActionKind
	Delay  time.Duration
	Reason string
}

func None() RecoveryAction {
	return RecoveryAction{Kind: ActionNone}
}

func ReinitializeAfter(delay time.Duration, reason string) RecoveryAction {
	return RecoveryAction{Kind: ActionReinitialize, Delay: delay, Reason: reason}
}

func RestartAfter(delay time.Duration, reason string) RecoveryAction {
	return RecoveryAction{Kind: ActionRestart, Delay: delay, Reason: reason}
}

func (a RecoveryAction) String() string {
	if a.Kind == ActionNone {
		return string(ActionNone)
	}
	return fmt.Sprintf("%s after %s (%s)", a.Kind, a.Delay, a.Reason)
}

// DecideDisconnect maps a disconnect reason to its re-initialization delay.
func DecideDisconnect(cfg Config, reason string) RecoveryAction {
	if reason == ReasonNavigation {
		return ReinitializeAfter(cfg.NavigationReinitDelay, "disconnected: "+reason)
	}
	return ReinitializeAfter(cfg.ReinitDelay, "disconnected: "+reason)
}

// ProbeKind classifies a liveness probe outcome.
type ProbeKind int

const (
	ProbeConnected ProbeKind = iota
	ProbeDisconnected
	ProbeFailedKind
)

func (k ProbeKind) String() string {
	switch k {
	case ProbeConnected:
		return "connected"
	case ProbeDisconnected:
		return "disconnected"
	default:
		return "failed"
	}
}

// ProbeResult is the outcome of one liveness probe.
type ProbeResult struct {
	Kind  ProbeKind
	State string
	Err   error
}

func Connected() ProbeResult {
	return ProbeResult{Kind: ProbeConnected, State: ConnectedState}
}

func Disconnected(state string) ProbeResult {
	return ProbeResult{Kind: ProbeDisconnected, State: state}
}

func ProbeFailed(err error) ProbeResult {
	return ProbeResult{Kind: ProbeFailedKind, Err: err}
}
