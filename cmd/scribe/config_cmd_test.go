// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigCommand_RedactsKeys(t *testing.T) {
	isolate(t, nil)
	path := writeConfig(t, validConfigYAML)

	out, stderr, err := execute(t, "config", "--config", path)
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, out, "# source: "+path)
	assert.NotContains(t, out, "sk-test-123")

	var doc struct {
		Transcription struct {
			Timeout string `yaml:"timeout"`
			OpenAI  struct {
				APIKey string `yaml:"api_key"`
			} `yaml:"openai"`
		} `yaml:"transcription"`
		Health struct {
			CheckInterval string `yaml:"check_interval"`
		} `yaml:"health"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "[redacted]", doc.Transcription.OpenAI.APIKey)
	assert.Equal(t, "30s", doc.Transcription.Timeout)
	assert.Equal(t, "10m0s", doc.Health.CheckInterval)
}

func TestConfigCommand_ReportsProblems(t *testing.T) {
	isolate(t, nil)
	path := writeConfig(t, "transcription:\n  provider: openai\n")

	_, stderr, err := execute(t, "config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "warning: config: relay.recipient is required")
}

func TestConfigCommand_ReadsDotEnv(t *testing.T) {
	isolate(t, nil)
	require.NoError(t, os.WriteFile(".env", []byte("OPENAI_API_KEY=sk-dotenv-456\nMY_PHONE_NUMBER=+56933333333\n"), 0o600))
	path := writeConfig(t, "transcription:\n  provider: openai\n")

	out, stderr, err := execute(t, "config", "--config", path)
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.NotContains(t, out, "sk-dotenv-456")
	assert.Contains(t, out, "+56933333333")
}
