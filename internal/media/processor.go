// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package media

import (
	"context"
	"log/slog"

	"github.com/scribe-dev/scribe/internal/session"
	"github.com/scribe-dev/scribe/internal/transcription"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

// Outcome is how a message left the pipeline.
type Outcome string

const (
	OutcomeSkipped     Outcome = "skipped"
	OutcomeMuted       Outcome = "muted"
	OutcomeCommand     Outcome = "command"
	OutcomeRelayed     Outcome = "relayed"
	OutcomeEmpty       Outcome = "empty"
	OutcomeMediaError  Outcome = "media_error"
	OutcomeFailed      Outcome = "failed"
	OutcomeRelayFailed Outcome = "relay_failed"
	OutcomeTimeout     Outcome = "timeout"
	OutcomePanic       Outcome = "panic"
)

// Replies sent back to the originating chat.
const (
	ReplyProcessingError = "❌ Error procesando mensaje de voz"
	ReplyEmptyTranscript = "❌ Ups no se pudo traducir"
)

// Relayer forwards a transcript to the configured recipient.
type Relayer interface {
	Send(ctx context.Context, contactName, transcript string) error
}

// Processor runs download → classify → transcribe → relay for one message.
type Processor struct {
	transcriber transcription.Transcriber
	relay       Relayer
}

func NewProcessor(t transcription.Transcriber, r Relayer) *Processor {
	return &Processor{transcriber: t, relay: r}
}

// Process handles one message. Only voice-capable kinds are downloaded, and
// anything that is not a voice note is skipped without side effects.
func (p *Processor) Process(ctx context.Context, msg session.Message, log *slog.Logger) (Outcome, error) {
	if !msg.HasMedia() || !Downloadable(msg.Kind()) {
		return OutcomeSkipped, nil
	}

	media, err := msg.DownloadMedia(ctx)
	if err != nil {
		return OutcomeMediaError, scribeerr.Reclassify(err, scribeerr.CodeMediaDownloadFailure,
			"downloading media", scribeerr.FieldMessageID(msg.ID()))
	}
	if media == nil || media.MimeType == "" || len(media.Data) == 0 {
		log.Debug("media unavailable, skipping")
		return OutcomeSkipped, nil
	}
	if !IsVoiceNote(msg.Kind(), media.MimeType) {
		log.Debug("not a voice note, skipping", "mime", media.MimeType)
		return OutcomeSkipped, nil
	}

	name := p.contactName(ctx, msg, log)
	log.Info("transcribing voice note", "contact", name, "mime", media.MimeType, "bytes", len(media.Data))

	text, err := p.transcriber.Transcribe(ctx, transcription.Request{
		Audio:    media.Data,
		MimeType: media.MimeType,
		Filename: "voice" + Extension(media.MimeType),
	})
	if err != nil {
		return OutcomeFailed, scribeerr.Reclassify(err, scribeerr.CodeTranscriptionUpstreamFailure, "transcribing voice note")
	}

	if text == "" {
		log.Info("empty transcript")
		return OutcomeEmpty, nil
	}

	if err := p.relay.Send(ctx, name, text); err != nil {
		return OutcomeRelayFailed, scribeerr.Reclassify(err, scribeerr.CodeRelaySendFailure, "relaying transcript")
	}
	return OutcomeRelayed, nil
}

func (p *Processor) contactName(ctx context.Context, msg session.Message, log *slog.Logger) string {
	contact, err := msg.Contact(ctx)
	if err != nil {
		log.Debug("contact lookup failed", "error", err)
	}
	return contact.DisplayName(msg.From())
}
