// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package media

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/scribe-dev/scribe/internal/session"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

// Chat commands.
const (
	CommandPing = "!ping"
	CommandHelp = "!help"

	ReplyPong = "🏓 pong"
	ReplyHelp = "📱 Mandame un audio y te lo paso a texto!\n\n🏓 Comandos:\n• `!ping` - Pruébame\n• `!help` - Muestra este mensaje"
)

const groupSuffix = "@g.us"

// Config controls per-message handling.
type Config struct {
	Timeout         time.Duration
	SkipMutedGroups bool
	Commands        bool
	MaxInFlight     int
}

// Readiness is the slice of session health a handler reads.
type Readiness interface {
	Ready() bool
	LastActivity() time.Time
}

// Observer receives per-message outcomes.
type Observer interface {
	MessageHandled(outcome Outcome, elapsed time.Duration)
}

// Handler is the message-handler boundary: every error and panic from one
// message stops here.
type Handler struct {
	cfg      Config
	proc     *Processor
	state    Readiness
	clock    clock.Clock
	observer Observer
	slots    chan struct{}
	wg       sync.WaitGroup
}

type HandlerOption func(*Handler)

func WithClock(clk clock.Clock) HandlerOption {
	return func(h *Handler) { h.clock = clk }
}

func WithObserver(o Observer) HandlerOption {
	return func(h *Handler) { h.observer = o }
}

func NewHandler(cfg Config, proc *Processor, state Readiness, opts ...HandlerOption) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	h := &Handler{
		cfg:   cfg,
		proc:  proc,
		state: state,
		clock: clock.New(),
		slots: make(chan struct{}, cfg.MaxInFlight),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Dispatch handles msg on its own goroutine so the caller is never blocked
// by a slow download or transcription.
func (h *Handler) Dispatch(ctx context.Context, msg session.Message) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.Handle(ctx, msg)
	}()
}

// Wait blocks until dispatched messages finish.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// Handle processes one message within the configured deadline.
func (h *Handler) Handle(ctx context.Context, msg session.Message) (outcome Outcome) {
	start := h.clock.Now()
	log := slog.With("trace_id", uuid.NewString(), "message_id", msg.ID(), "from", msg.From(), "kind", msg.Kind())

	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomePanic
			log.Error("panic in message handler",
				"panic", fmt.Sprint(r),
				"ready", h.state.Ready(),
				"last_activity", h.state.LastActivity(),
				"stack", string(debug.Stack()))
		}
		if h.observer != nil {
			h.observer.MessageHandled(outcome, h.clock.Since(start))
		}
	}()

	ctx, cancel := h.clock.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	select {
	case h.slots <- struct{}{}:
		defer func() { <-h.slots }()
	case <-ctx.Done():
		log.Warn("message dropped waiting for a free slot", "error", h.deadlineErr(ctx.Err()))
		return OutcomeTimeout
	}

	return h.handle(ctx, msg, log)
}

func (h *Handler) handle(ctx context.Context, msg session.Message, log *slog.Logger) Outcome {
	if h.cfg.SkipMutedGroups && strings.HasSuffix(msg.From(), groupSuffix) {
		chat, err := msg.Chat(ctx)
		switch {
		case err != nil:
			log.Warn("chat lookup failed, skipping message", "error", err)
			return OutcomeSkipped
		case chat.IsMuted:
			log.Info("muted group, ignoring message")
			return OutcomeMuted
		}
	}

	if msg.HasMedia() {
		outcome, err := h.proc.Process(ctx, msg, log)
		switch {
		case err != nil:
			return h.fail(ctx, msg, err, log)
		case outcome == OutcomeEmpty:
			h.reply(ctx, msg, ReplyEmptyTranscript, log)
			return outcome
		case outcome != OutcomeSkipped:
			return outcome
		}
	}

	if h.cfg.Commands {
		if reply, ok := commandReply(msg.Body()); ok {
			h.reply(ctx, msg, reply, log)
			return OutcomeCommand
		}
	}
	return OutcomeSkipped
}

// fail logs a processing error by its class. Only transcription failures
// are reported back to the sender.
func (h *Handler) fail(ctx context.Context, msg session.Message, err error, log *slog.Logger) Outcome {
	log = log.With("code", scribeerr.CodeOf(err), "fields", scribeerr.FieldsOf(err))

	switch {
	case ctx.Err() != nil || scribeerr.IsTimeout(err):
		log.Error("media processing timed out", "error", h.deadlineErr(err))
		return OutcomeTimeout
	case scribeerr.IsMediaFailure(err):
		log.Error("media download failed", "error", err)
		return OutcomeMediaError
	case scribeerr.IsRelayFailure(err):
		log.Error("transcript relay failed", "error", err)
		return OutcomeRelayFailed
	default:
		log.Error("voice note processing failed", "error", err,
			"transcription", scribeerr.IsTranscriptionFailure(err))
		h.reply(ctx, msg, ReplyProcessingError, log)
		return OutcomeFailed
	}
}

// deadlineErr files err under the per-message deadline.
func (h *Handler) deadlineErr(err error) error {
	return scribeerr.Reclassify(err, scribeerr.CodeMediaProcessTimeout,
		"message exceeded processing deadline", scribeerr.Field("timeout", h.cfg.Timeout.String()))
}

// reply answers in the originating chat. Sends are suppressed while the
// session is not ready.
func (h *Handler) reply(ctx context.Context, msg session.Message, text string, log *slog.Logger) {
	if !h.state.Ready() {
		log.Warn("session not ready, reply suppressed", "reply", text)
		return
	}
	if err := msg.Reply(ctx, text); err != nil {
		log.Error("failed to send reply", "error", err)
	}
}

func commandReply(body string) (string, bool) {
	switch strings.TrimSpace(body) {
	case CommandPing:
		return ReplyPong, true
	case CommandHelp:
		return ReplyHelp, true
	}
	return "", false
}
