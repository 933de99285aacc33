// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 bytes"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}

func TestCheckSession_Unpaired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	assert.Contains(t, checkSession(context.Background(), path), "not paired")
}

func TestCheckKeyring(t *testing.T) {
	assert.Equal(t, "no secrets stored", checkKeyring(newMockSecretStore()))
	assert.Equal(t, "2 secret(s) stored", checkKeyring(newMockSecretStore("a", "b")))
}

func TestCheckBot(t *testing.T) {
	addr := statusServer(t, sampleStatus())
	assert.Contains(t, checkBot(addr), "session ready")
	assert.Contains(t, checkBot(closedAddr(t)), "not running")
}

func TestDoctorCommand(t *testing.T) {
	isolate(t, newMockSecretStore("openai-api-key"))
	path := writeConfig(t, validConfigYAML)
	dataDir := t.TempDir()

	out, _, err := execute(t, "doctor", "--config", path, "--data-dir", dataDir, "--address", closedAddr(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Binary:")
	assert.Contains(t, out, "loaded from "+path)
	assert.Contains(t, out, "ok (provider openai, recipient 56911111111@c.us)")
	assert.Contains(t, out, "not paired ("+filepath.Join(dataDir, "session.db")+")")
	assert.Contains(t, out, "1 secret(s) stored")
	assert.Contains(t, out, "available")
	assert.Contains(t, out, "not running")
}

func TestDoctorCommand_InsecureConfig(t *testing.T) {
	isolate(t, nil)
	path := writeConfig(t, validConfigYAML)
	require.NoError(t, os.Chmod(path, 0o644))

	out, _, err := execute(t, "doctor", "--config", path, "--address", closedAddr(t))
	require.NoError(t, err)
	assert.Contains(t, out, "WARNING: permissions 0644")
}
