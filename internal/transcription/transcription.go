// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package transcription turns voice-note audio into text through one or more
// speech-to-text backends.
package transcription

import (
	"context"
	"strings"

	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

// Request is one audio clip to transcribe.
type Request struct {
	Audio    []byte
	MimeType string
	// Filename carries the container extension some backends sniff the
	// format from, e.g. "voice.ogg".
	Filename string
}

// Validate rejects requests no backend could serve.
func (r Request) Validate() error {
	if len(r.Audio) == 0 {
		return scribeerr.New(scribeerr.CodeTranscriptionRequestInvalid, "audio is empty")
	}
	if r.MimeType == "" {
		return scribeerr.New(scribeerr.CodeTranscriptionRequestInvalid, "audio mime type is empty")
	}
	return nil
}

// Transcriber converts audio to text. An empty transcript with a nil error
// means the clip contained no recognizable speech.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (string, error)
}

// Clean trims surrounding whitespace. The rest of the body is returned as
// the service produced it.
func Clean(text string) string {
	return strings.TrimSpace(text)
}
