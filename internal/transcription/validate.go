// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package transcription

import (
	"context"
	"io"
	"net/http"

	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

// Default model-listing endpoints used to check an API key.
const (
	OpenAIModelsURL = "https://api.openai.com/v1/models"
	GeminiModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

// ValidateKey checks key against the provider's model listing endpoint.
func ValidateKey(ctx context.Context, client *http.Client, provider, key string) error {
	switch provider {
	case "openai":
		return ValidateKeyAt(ctx, client, provider, OpenAIModelsURL, key)
	case "gemini":
		return ValidateKeyAt(ctx, client, provider, GeminiModelsURL, key)
	default:
		return scribeerr.Errorf(scribeerr.CodeTranscriptionRequestInvalid, "unknown provider: %s", provider)
	}
}

// ValidateKeyAt is ValidateKey against an explicit URL.
func ValidateKeyAt(ctx context.Context, client *http.Client, provider, url, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return scribeerr.Wrapf(err, scribeerr.CodeTranscriptionKeyCheckFailure, "building %s validation request", provider)
	}

	switch provider {
	case "gemini":
		req.Header.Set("x-goog-api-key", key)
	default:
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := client.Do(req)
	if err != nil {
		return scribeerr.Wrapf(err, scribeerr.CodeTranscriptionKeyCheckFailure, "validating %s key", provider)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Gemini answers a bad key with 400 API_KEY_INVALID.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		(provider == "gemini" && resp.StatusCode == http.StatusBadRequest) {
		return scribeerr.Errorf(scribeerr.CodeTranscriptionKeyUnauthorized, "invalid %s API key (HTTP %d)", provider, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return scribeerr.Errorf(scribeerr.CodeTranscriptionKeyCheckFailure, "%s validation failed (HTTP %d)", provider, resp.StatusCode)
	}
	return nil
}
