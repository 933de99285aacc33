// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package relay delivers transcripts to the single configured recipient.
package relay

import (
	"context"
	"fmt"
	"log/slog"

	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

// Sender delivers text to a user identifier.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Readiness gates outbound sends.
type Readiness interface {
	Ready() bool
}

// Relay forwards transcripts to one recipient, never to the originating chat.
type Relay struct {
	sender    Sender
	ready     Readiness
	recipient string
}

func New(sender Sender, ready Readiness, recipient string) *Relay {
	return &Relay{sender: sender, ready: ready, recipient: recipient}
}

func (r *Relay) Recipient() string { return r.recipient }

// Compose formats a transcript for delivery.
func Compose(contactName, transcript string) string {
	return fmt.Sprintf("*Audio de %s*\n\n_\"%s\"_", contactName, transcript)
}

// Send relays a transcript. Failures are returned for logging; there is no
// retry.
func (r *Relay) Send(ctx context.Context, contactName, transcript string) error {
	if !r.ready.Ready() {
		return scribeerr.New(scribeerr.CodeRelaySessionNotReady,
			"session not ready, transcript dropped", scribeerr.FieldRecipient(r.recipient))
	}

	if err := r.sender.SendText(ctx, r.recipient, Compose(contactName, transcript)); err != nil {
		return scribeerr.Reclassify(err, scribeerr.CodeRelaySendFailure, "sending transcript",
			scribeerr.FieldRecipient(r.recipient))
	}

	slog.Info("transcript relayed", "recipient", r.recipient, "contact", contactName, "chars", len(transcript))
	return nil
}
