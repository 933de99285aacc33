// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/scribe-dev/scribe/internal/config"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.Unmarshal(v)
	require.NoError(t, err)

	cfg.DataDir = t.TempDir()
	cfg.Transcription.OpenAI.APIKey = "sk-test"
	cfg.Relay.Recipient = "56911111111@c.us"
	cfg.Server.Listen = "127.0.0.1:18791"
	require.Empty(t, cfg.Validate())
	return cfg
}

func TestHealthConfig_MapsEveryField(t *testing.T) {
	in := config.HealthConfig{
		CheckInterval:         time.Minute,
		StaleAfter:            time.Hour,
		NotReadyRestartAfter:  3 * time.Minute,
		RestartGrace:          time.Second,
		FatalRestartGrace:     4 * time.Second,
		NavigationReinitDelay: 6 * time.Second,
		ReinitDelay:           7 * time.Second,
		ProbeTimeout:          8 * time.Second,
		FatalSignatures:       []string{"Session closed"},
		ExitCode:              3,
	}

	out := healthConfig(in)
	assert.Equal(t, time.Minute, out.CheckInterval)
	assert.Equal(t, time.Hour, out.StaleAfter)
	assert.Equal(t, 3*time.Minute, out.NotReadyRestartAfter)
	assert.Equal(t, time.Second, out.RestartGrace)
	assert.Equal(t, 4*time.Second, out.FatalRestartGrace)
	assert.Equal(t, 6*time.Second, out.NavigationReinitDelay)
	assert.Equal(t, 7*time.Second, out.ReinitDelay)
	assert.Equal(t, 8*time.Second, out.ProbeTimeout)
	assert.Equal(t, []string{"Session closed"}, out.FatalSignatures)
	assert.Equal(t, 3, out.ExitCode)
}

func TestNewTranscriber_Unknown(t *testing.T) {
	_, err := newTranscriber(context.Background(), "anthropic", config.TranscriptionConfig{})
	require.Error(t, err)
	assert.True(t, scribeerr.IsConfigFailure(err))
}

func TestNewRouter_SkipsBrokenFailover(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcription.Failover = []string{"gemini"}

	router, err := newRouter(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai"}, router.Providers())

	cfg.Transcription.Gemini.APIKey = "AIza-test"
	router, err = newRouter(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "gemini"}, router.Providers())
}

func TestNewRouter_PrimaryMustBuild(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcription.OpenAI.APIKey = ""

	_, err := newRouter(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestWireApp(t *testing.T) {
	cfg := testConfig(t)

	app, err := WireApp(context.Background(), cfg, io.Discard, func(int) {})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.NotNil(t, app.Bot)
	assert.NotNil(t, app.Server)
	assert.Equal(t, []string{"openai"}, app.Router.Providers())
	assert.FileExists(t, filepath.Join(cfg.DataDir, "session.db"))
	assert.False(t, app.Supervisor.State().Ready())
	assert.Equal(t, cfg.Health.CheckInterval, app.Supervisor.Interval())
}

func TestWireApp_ServerDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Enabled = false

	app, err := WireApp(context.Background(), cfg, io.Discard, func(int) {})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	assert.Nil(t, app.Server)
}

func TestWireApp_BadRecipient(t *testing.T) {
	cfg := testConfig(t)
	cfg.Relay.Recipient = "group@g.us"

	_, err := WireApp(context.Background(), cfg, io.Discard, func(int) {})
	require.Error(t, err)
	assert.True(t, scribeerr.HasCode(err, scribeerr.CodeSessionRecipientInvalid))
}

func TestQRPrinter(t *testing.T) {
	var buf bytes.Buffer
	qrPrinter(true, &buf)("2@pairing-code")
	assert.NotEmpty(t, buf.String())

	buf.Reset()
	qrPrinter(false, &buf)("2@pairing-code")
	assert.Empty(t, buf.String())
}
