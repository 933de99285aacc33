// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package secrets keeps transcription API keys out of config files by
// storing them in the OS keyring and resolving keyring:// references.
package secrets

// ServiceName is the keyring service under which Scribe stores secrets.
const ServiceName = "scribe"

// Well-known secret names referenced from the default config.
const (
	KeyOpenAIAPIKey = "openai-api-key"
	KeyGeminiAPIKey = "gemini-api-key"
)

// Store provides secret storage operations.
type Store interface {
	Store(service, key, value string) error

	// Retrieve returns a CodeSecretNotFound error when the key does not exist.
	Retrieve(service, key string) (string, error)

	// Delete returns a CodeSecretNotFound error when the key does not exist.
	Delete(service, key string) error

	List(service string) ([]string, error)
}
