// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package bot runs the single coordinator loop that feeds session events and
// health-check ticks to the supervisor and hands inbound messages to the
// media handler.
package bot

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/scribe-dev/scribe/internal/health"
	"github.com/scribe-dev/scribe/internal/session"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

// MessageHandler processes inbound messages off the coordinator goroutine.
type MessageHandler interface {
	Dispatch(ctx context.Context, msg session.Message)
	Wait()
}

// EventRecorder counts session events.
type EventRecorder interface {
	SessionEvent(kind string)
}

type nopRecorder struct{}

func (nopRecorder) SessionEvent(string) {}

// Config wires a Bot.
type Config struct {
	Transport  session.Transport
	Supervisor *health.Supervisor
	Handler    MessageHandler
	// ShowQR renders a pairing code. Nil disables QR output.
	ShowQR   func(code string)
	Recorder EventRecorder
}

// Bot is the coordinator.
type Bot struct {
	transport session.Transport
	sup       *health.Supervisor
	handler   MessageHandler
	showQR    func(string)
	recorder  EventRecorder
	clock     clock.Clock
}

// New validates cfg and returns a Bot.
func New(cfg Config) (*Bot, error) {
	if cfg.Transport == nil {
		return nil, scribeerr.New(scribeerr.CodeConfigValidateInvalidValue, "bot: transport is required")
	}
	if cfg.Supervisor == nil {
		return nil, scribeerr.New(scribeerr.CodeConfigValidateInvalidValue, "bot: supervisor is required")
	}
	if cfg.Handler == nil {
		return nil, scribeerr.New(scribeerr.CodeConfigValidateInvalidValue, "bot: message handler is required")
	}

	b := &Bot{
		transport: cfg.Transport,
		sup:       cfg.Supervisor,
		handler:   cfg.Handler,
		showQR:    cfg.ShowQR,
		recorder:  cfg.Recorder,
		clock:     cfg.Supervisor.Clock(),
	}
	if b.recorder == nil {
		b.recorder = nopRecorder{}
	}
	return b, nil
}

// Run initializes the session and processes events and health ticks until
// ctx is cancelled. In-flight messages are awaited before returning.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.transport.Initialize(ctx); err != nil {
		return scribeerr.Wrap(err, scribeerr.CodeSessionTransportFailure, "initializing session")
	}

	ticker := b.clock.Ticker(b.sup.Interval())
	defer ticker.Stop()

	slog.Info("bot started", "health_check_interval", b.sup.Interval().String())

	events := b.transport.Events()
	for {
		select {
		case <-ctx.Done():
			slog.Info("bot stopping, waiting for in-flight messages")
			b.handler.Wait()
			return nil

		case evt := <-events:
			b.HandleEvent(ctx, evt)

		case <-ticker.C:
			b.sup.RunHealthCheck(ctx)
		}
	}
}

// HandleEvent applies one session event.
func (b *Bot) HandleEvent(ctx context.Context, evt session.Event) {
	b.recorder.SessionEvent(string(evt.Kind))

	switch evt.Kind {
	case session.EventReady:
		b.sup.OnReady()

	case session.EventQR:
		slog.Info("pairing required, scan the QR code with the phone")
		if b.showQR != nil {
			b.showQR(evt.QRCode)
		}

	case session.EventAuthenticated:
		slog.Info("session authenticated")

	case session.EventAuthFailure:
		b.sup.OnAuthFailure(ctx, evt.Reason)

	case session.EventDisconnected:
		b.sup.OnDisconnected(ctx, evt.Reason)

	case session.EventLoadingScreen:
		slog.Info("session loading", "percent", evt.Percent, "detail", evt.Detail)

	case session.EventChangeState:
		slog.Info("session state changed", "state", evt.Detail)

	case session.EventMessage:
		if evt.Message == nil {
			return
		}
		b.sup.Touch()
		b.handler.Dispatch(ctx, evt.Message)

	default:
		slog.Debug("ignoring session event", "kind", evt.Kind)
	}
}
