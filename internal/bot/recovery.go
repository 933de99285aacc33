// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package bot

import (
	"context"
	"log/slog"
	"os"

	"github.com/scribe-dev/scribe/internal/health"
	"github.com/scribe-dev/scribe/internal/session"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

// Probe adapts the transport's State call to a health.ProbeFunc.
func Probe(t session.Transport) health.ProbeFunc {
	return func(ctx context.Context) (string, error) {
		state, err := t.State(ctx)
		if err != nil {
			return "", err
		}
		return string(state), nil
	}
}

// Recoverer executes supervisor recovery against a transport.
type Recoverer struct {
	transport session.Transport
	exit      func(code int)
}

// NewRecoverer returns a Recoverer. A nil exit uses os.Exit.
func NewRecoverer(t session.Transport, exit func(code int)) *Recoverer {
	if exit == nil {
		exit = os.Exit
	}
	return &Recoverer{transport: t, exit: exit}
}

// Reinitialize re-establishes the session in-process.
func (r *Recoverer) Reinitialize(ctx context.Context) error {
	if err := r.transport.Initialize(ctx); err != nil {
		return scribeerr.Wrap(err, scribeerr.CodeSessionTransportFailure, "reinitializing session")
	}
	return nil
}

// Restart closes the transport and terminates the process with code.
func (r *Recoverer) Restart(code int) {
	if err := r.transport.Close(); err != nil {
		slog.Warn("closing session before restart", "error", err)
	}
	slog.Error("exiting for restart", "exit_code", code)
	r.exit(code)
}
