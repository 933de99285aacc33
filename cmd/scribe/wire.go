// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/scribe-dev/scribe/internal/bot"
	"github.com/scribe-dev/scribe/internal/config"
	"github.com/scribe-dev/scribe/internal/health"
	"github.com/scribe-dev/scribe/internal/media"
	"github.com/scribe-dev/scribe/internal/metrics"
	"github.com/scribe-dev/scribe/internal/relay"
	"github.com/scribe-dev/scribe/internal/server"
	"github.com/scribe-dev/scribe/internal/session/whatsapp"
	"github.com/scribe-dev/scribe/internal/transcription"
	"github.com/scribe-dev/scribe/internal/transcription/gemini"
	"github.com/scribe-dev/scribe/internal/transcription/openai"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

// App holds all wired subsystems.
type App struct {
	Bot        *bot.Bot
	Transport  *whatsapp.Transport
	Supervisor *health.Supervisor
	Router     *transcription.Router
	Metrics    *metrics.Metrics
	// Server is nil when the status server is disabled.
	Server *server.Server
}

// Close releases the session.
func (a *App) Close() error {
	return a.Transport.Close()
}

// WireApp creates all subsystems and wires them together. QR codes are
// rendered to qrOut; exit is called for supervisor restarts.
func WireApp(ctx context.Context, cfg *config.Config, qrOut io.Writer, exit func(int)) (*App, error) {
	if _, err := whatsapp.ParseRecipient(cfg.Relay.Recipient); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.ResolvedDataDir(), 0o700); err != nil {
		return nil, scribeerr.Errorf(scribeerr.CodeCLISetupFailure, "creating data directory: %w", err)
	}

	m := metrics.New()

	// 1. Transcription backends, primary first.
	router, err := newRouter(ctx, cfg, m)
	if err != nil {
		return nil, err
	}

	// 2. Session transport.
	transport, err := whatsapp.New(ctx, whatsapp.Config{
		StorePath:  cfg.SessionStorePath(),
		DeviceName: cfg.Session.DeviceName,
		LogLevel:   parseLevel(cfg.Logging.Level),
	})
	if err != nil {
		return nil, err
	}

	// 3. Supervisor owning the shared session state.
	sup, err := health.NewSupervisor(healthConfig(cfg.Health),
		bot.Probe(transport),
		bot.NewRecoverer(transport, exit),
		health.WithObserver(m),
	)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}

	// 4. Message path: relay, processor, handler.
	rel := relay.New(transport, sup.State(), cfg.Relay.Recipient)
	handler := media.NewHandler(mediaConfig(cfg.Media),
		media.NewProcessor(router, rel),
		sup.State(),
		media.WithClock(sup.Clock()),
		media.WithObserver(m),
	)

	b, err := bot.New(bot.Config{
		Transport:  transport,
		Supervisor: sup,
		Handler:    handler,
		ShowQR:     qrPrinter(cfg.Session.PrintQR, qrOut),
		Recorder:   m,
	})
	if err != nil {
		_ = transport.Close()
		return nil, err
	}

	app := &App{
		Bot:        b,
		Transport:  transport,
		Supervisor: sup,
		Router:     router,
		Metrics:    m,
	}

	// 5. Status server.
	if cfg.Server.Enabled {
		srv, err := server.New(server.Config{
			ListenAddr:  cfg.Server.Listen,
			CORSOrigins: cfg.Server.CORSOrigins,
			Version:     version,
			Status:      sup,
			Providers:   router,
			Metrics:     m.Handler(),
			Recorder:    m,
		})
		if err != nil {
			_ = transport.Close()
			return nil, err
		}
		app.Server = srv
	}

	return app, nil
}

// newRouter registers every configured backend. The primary must build;
// a failover that cannot is skipped with a warning.
func newRouter(ctx context.Context, cfg *config.Config, obs transcription.Observer) (*transcription.Router, error) {
	router := transcription.NewRouter(
		transcription.WithTimeout(cfg.Transcription.Timeout),
		transcription.WithCooldown(cfg.Transcription.Cooldown),
		transcription.WithObserver(obs),
	)

	for i, name := range cfg.Providers() {
		backend, err := newTranscriber(ctx, name, cfg.Transcription)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			slog.Warn("skipping failover transcription provider", "provider", name, "error", err)
			continue
		}
		if err := router.Register(backend); err != nil {
			return nil, err
		}
	}

	slog.Info("transcription providers registered", "providers", router.Providers())
	return router, nil
}

func newTranscriber(ctx context.Context, name string, cfg config.TranscriptionConfig) (transcription.Transcriber, error) {
	switch name {
	case openai.Name:
		return openai.New(openai.Config{
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
			Model:    cfg.OpenAI.Model,
			Language: cfg.OpenAI.Language,
			Prompt:   cfg.OpenAI.Prompt,
		})
	case gemini.Name:
		return gemini.New(ctx, gemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			BaseURL: cfg.Gemini.BaseURL,
			Model:   cfg.Gemini.Model,
			Prompt:  cfg.Gemini.Prompt,
		})
	default:
		return nil, scribeerr.Errorf(scribeerr.CodeConfigValidateInvalidValue, "unknown transcription provider %q", name)
	}
}

func healthConfig(c config.HealthConfig) health.Config {
	return health.Config{
		CheckInterval:         c.CheckInterval,
		StaleAfter:            c.StaleAfter,
		NotReadyRestartAfter:  c.NotReadyRestartAfter,
		RestartGrace:          c.RestartGrace,
		FatalRestartGrace:     c.FatalRestartGrace,
		NavigationReinitDelay: c.NavigationReinitDelay,
		ReinitDelay:           c.ReinitDelay,
		ProbeTimeout:          c.ProbeTimeout,
		FatalSignatures:       c.FatalSignatures,
		ExitCode:              c.ExitCode,
	}
}

func mediaConfig(c config.MediaConfig) media.Config {
	return media.Config{
		Timeout:         c.Timeout,
		SkipMutedGroups: c.SkipMutedGroups,
		Commands:        c.Commands,
		MaxInFlight:     c.MaxInFlight,
	}
}

// qrPrinter renders pairing codes to w, or logs them raw when printing is off.
func qrPrinter(enabled bool, w io.Writer) func(string) {
	if !enabled || w == nil {
		return func(code string) { slog.Info("pairing code", "code", code) }
	}
	return func(code string) { whatsapp.PrintQR(w, code) }
}
