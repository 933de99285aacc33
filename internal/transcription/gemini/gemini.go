// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package gemini transcribes audio by sending it inline to a Gemini model
// with a transcription prompt.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/scribe-dev/scribe/internal/transcription"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

const (
	Name          = "gemini"
	DefaultModel  = "gemini-2.5-flash"
	DefaultPrompt = "Transcribe this voice note verbatim in its original language. " +
		"Reply with the transcript only. Reply with nothing if there is no speech."
)

type Config struct {
	APIKey  string
	BaseURL string // optional, for tests
	Model   string
	Prompt  string
}

// Transcriber implements transcription.Transcriber.
type Transcriber struct {
	client *genai.Client
	config Config
}

var _ transcription.Transcriber = (*Transcriber)(nil)

func New(ctx context.Context, cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, scribeerr.New(scribeerr.CodeTranscriptionRequestInvalid,
			"gemini: missing api_key in config", scribeerr.FieldProvider(Name))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}

	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, scribeerr.Wrap(err, scribeerr.CodeTranscriptionUpstreamFailure,
			"gemini: creating client", scribeerr.FieldProvider(Name))
	}
	return &Transcriber{client: client, config: cfg}, nil
}

func (t *Transcriber) Name() string { return Name }

func (t *Transcriber) Transcribe(ctx context.Context, req transcription.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	resp, err := t.client.Models.GenerateContent(ctx, t.config.Model, buildContents(t.config.Prompt, req), nil)
	if err != nil {
		return "", classify(ctx, err)
	}
	if len(resp.Candidates) == 0 {
		reason := "no candidates"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
		}
		return "", scribeerr.New(scribeerr.CodeTranscriptionResponseMalformed,
			"gemini: "+reason, scribeerr.FieldProvider(Name))
	}
	return unquote(transcription.Clean(resp.Text())), nil
}

// unquote drops the pair of quotes the model sometimes wraps a transcript in.
func unquote(text string) string {
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		return strings.TrimSpace(text[1 : len(text)-1])
	}
	return text
}

// buildContents pairs the prompt with the inline audio in one user turn.
func buildContents(prompt string, req transcription.Request) []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(req.Audio, baseMime(req.MimeType)),
		}, genai.RoleUser),
	}
}

// baseMime drops parameters: "audio/ogg; codecs=opus" becomes "audio/ogg".
func baseMime(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.TrimSpace(base)
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return scribeerr.Wrap(err, scribeerr.CodeTranscriptionRequestTimeout,
			"gemini: transcription timed out", scribeerr.FieldProvider(Name))
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		code := scribeerr.CodeTranscriptionUpstreamFailure
		switch apiErr.Code {
		case http.StatusBadRequest:
			code = scribeerr.CodeTranscriptionRequestInvalid
		case http.StatusUnauthorized, http.StatusForbidden:
			code = scribeerr.CodeTranscriptionKeyUnauthorized
		}
		return scribeerr.New(code, "gemini: "+apiErr.Error(), scribeerr.FieldProvider(Name),
			scribeerr.Field("status", apiErr.Code))
	}

	return scribeerr.Wrap(err, scribeerr.CodeTranscriptionUpstreamFailure,
		"gemini: transcription request failed", scribeerr.FieldProvider(Name))
}
