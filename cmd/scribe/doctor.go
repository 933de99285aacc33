// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/scribe-dev/scribe/internal/config"
	"github.com/scribe-dev/scribe/internal/secrets"
	"github.com/scribe-dev/scribe/internal/server"
	"github.com/scribe-dev/scribe/internal/session/whatsapp"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, configuration, paired session, keyring secrets, disk space, and a running bot.",
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", defaultStatusAddr, "status server address to check")

	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr, _ := cmd.Flags().GetString("address")
	dataDir := resolveDataDir()
	storePath := resolveStorePath(dataDir)
	ctx := contextOrBackground(cmd)

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", checkConfig},
		{"Settings", checkSettings},
		{"Session", func() string { return checkSession(ctx, storePath) }},
		{"Keyring", func() string { return checkKeyring(secretStoreFactory()) }},
		{"Disk Space", func() string { return checkDiskSpace(dataDir) }},
		{"Bot", func() string { return checkBot(addr) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

// resolveDataDir returns the data directory from viper or the default.
func resolveDataDir() string {
	if dataDir := viper.GetString("data_dir"); dataDir != "" {
		return dataDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".scribe")
}

func resolveStorePath(dataDir string) string {
	if p := viper.GetString("session.store_path"); p != "" {
		return p
	}
	return filepath.Join(dataDir, "session.db")
}

func checkBinary() string {
	return fmt.Sprintf("scribe %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig() string {
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		return "using defaults (no config file found)"
	}
	if mode, insecure := config.InsecurePermissions(cfgFile); insecure {
		return fmt.Sprintf("loaded from %s (WARNING: permissions %04o, run chmod 600)", cfgFile, mode.Perm())
	}
	return fmt.Sprintf("loaded from %s", cfgFile)
}

// checkSettings validates the effective configuration, keyring references
// included.
func checkSettings() string {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Sprintf("invalid: %s", err)
	}
	return fmt.Sprintf("ok (provider %s, recipient %s)", cfg.Transcription.Provider, cfg.Relay.Recipient)
}

func checkSession(ctx context.Context, storePath string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	paired, err := whatsapp.Paired(ctx, storePath)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	if !paired {
		return fmt.Sprintf("not paired (%s); 'scribe run' will show a QR code", storePath)
	}
	return fmt.Sprintf("paired (%s)", storePath)
}

func checkKeyring(store secrets.Store) string {
	keys, err := store.List(secrets.ServiceName)
	if err != nil {
		return fmt.Sprintf("unavailable: %s", err)
	}
	if len(keys) == 0 {
		return "no secrets stored"
	}
	return fmt.Sprintf("%d secret(s) stored", len(keys))
}

func checkBot(addr string) string {
	var body server.HealthBody
	if err := newBotClient(addr).getJSON("/health", &body); err != nil {
		if scribeerr.HasCode(err, scribeerr.CodeCLIGatewayNotRunning) {
			return fmt.Sprintf("not running at %s (run 'scribe run')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	if !body.Ready {
		return fmt.Sprintf("running at %s, session not ready", addr)
	}
	return fmt.Sprintf("running at %s, session ready", addr)
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
