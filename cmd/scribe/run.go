// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/scribe-dev/scribe/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// exitFunc terminates the process on supervisor restarts.
var exitFunc = os.Exit

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the transcription bot",
		Long: `Load configuration, connect the WhatsApp session (pairing by QR code on
first run), and relay transcribed voice notes until interrupted.

The process exits non-zero when the session cannot be recovered in-process;
run it under a process manager that restarts it.`,
		RunE: runBot,
	}

	cmd.Flags().String("listen", "", "override status server address (host:port)")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closer, err := initLogger(cfg.Logging, viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	slog.SetDefault(logger)

	if path := viper.ConfigFileUsed(); path != "" {
		config.WarnInsecurePermissions(path)
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := WireApp(ctx, cfg, cmd.OutOrStdout(), exitFunc)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	slog.Info("starting scribe",
		"version", version,
		"recipient", cfg.Relay.Recipient,
		"providers", app.Router.Providers(),
		"session_store", cfg.SessionStorePath(),
	)

	if app.Server != nil {
		go func() {
			if err := app.Server.Start(ctx); err != nil {
				slog.Error("status server stopped", "error", err)
			}
		}()
	}

	return app.Bot.Run(ctx)
}

// contextOrBackground guards cobra commands executed without a context.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
