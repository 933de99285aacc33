// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package openai transcribes audio with the OpenAI audio transcription API
// (Whisper).
package openai

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/scribe-dev/scribe/internal/transcription"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

const (
	Name         = "openai"
	DefaultModel = "whisper-1"
)

type Config struct {
	APIKey   string
	BaseURL  string // optional, for proxies and tests
	Model    string
	Language string // ISO-639-1 hint, optional
	Prompt   string // optional
}

// Transcriber implements transcription.Transcriber.
type Transcriber struct {
	client openaisdk.Client
	config Config
}

var _ transcription.Transcriber = (*Transcriber)(nil)

// New returns a Whisper client. Retries are left to the router.
func New(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, scribeerr.New(scribeerr.CodeTranscriptionRequestInvalid,
			"openai: missing api_key in config", scribeerr.FieldProvider(Name))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Transcriber{client: openaisdk.NewClient(opts...), config: cfg}, nil
}

func (t *Transcriber) Name() string { return Name }

func (t *Transcriber) Transcribe(ctx context.Context, req transcription.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	// response_format=text returns a plain body, captured verbatim.
	var text string
	_, err := t.client.Audio.Transcriptions.New(ctx, buildParams(t.config, req), option.WithResponseBodyInto(&text))
	if err != nil {
		return "", classify(ctx, err)
	}
	return transcription.Clean(text), nil
}

func buildParams(cfg Config, req transcription.Request) openaisdk.AudioTranscriptionNewParams {
	filename := req.Filename
	if filename == "" {
		filename = "audio"
	}

	params := openaisdk.AudioTranscriptionNewParams{
		File:           openaisdk.File(bytes.NewReader(req.Audio), filename, req.MimeType),
		Model:          openaisdk.AudioModel(cfg.Model),
		ResponseFormat: openaisdk.AudioResponseFormatText,
	}
	if cfg.Language != "" {
		params.Language = openaisdk.String(cfg.Language)
	}
	if cfg.Prompt != "" {
		params.Prompt = openaisdk.String(cfg.Prompt)
	}
	return params
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return scribeerr.Wrap(err, scribeerr.CodeTranscriptionRequestTimeout,
			"openai: transcription timed out", scribeerr.FieldProvider(Name))
	}

	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
			return scribeerr.New(scribeerr.CodeTranscriptionRequestInvalid,
				"openai: audio rejected: "+apiErr.Error(), scribeerr.FieldProvider(Name),
				scribeerr.Field("status", apiErr.StatusCode))
		case http.StatusUnauthorized, http.StatusForbidden:
			return scribeerr.New(scribeerr.CodeTranscriptionKeyUnauthorized,
				"openai: "+apiErr.Error(), scribeerr.FieldProvider(Name),
				scribeerr.Field("status", apiErr.StatusCode))
		default:
			return scribeerr.New(scribeerr.CodeTranscriptionUpstreamFailure,
				"openai: "+apiErr.Error(), scribeerr.FieldProvider(Name),
				scribeerr.Field("status", apiErr.StatusCode))
		}
	}

	return scribeerr.Wrap(err, scribeerr.CodeTranscriptionUpstreamFailure,
		"openai: transcription request failed", scribeerr.FieldProvider(Name))
}
