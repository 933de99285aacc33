// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package whatsapp

import (
	"context"
	"fmt"
	"log/slog"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// slogLogger bridges whatsmeow's printf-style logger onto slog.
type slogLogger struct {
	logger *slog.Logger
	module string
	min    slog.Level
}

// newLogger returns a waLog.Logger writing to the default slog logger.
// whatsmeow is chatty at info level, so records below min are dropped.
func newLogger(module string, min slog.Level) waLog.Logger {
	return &slogLogger{logger: slog.Default(), module: module, min: min}
}

func (l *slogLogger) log(level slog.Level, msg string, args []interface{}) {
	if level < l.min || !l.logger.Enabled(context.Background(), level) {
		return
	}
	l.logger.Log(context.Background(), level, fmt.Sprintf(msg, args...), "component", l.module)
}

func (l *slogLogger) Errorf(msg string, args ...interface{}) { l.log(slog.LevelError, msg, args) }
func (l *slogLogger) Warnf(msg string, args ...interface{})  { l.log(slog.LevelWarn, msg, args) }
func (l *slogLogger) Infof(msg string, args ...interface{})  { l.log(slog.LevelInfo, msg, args) }
func (l *slogLogger) Debugf(msg string, args ...interface{}) { l.log(slog.LevelDebug, msg, args) }

func (l *slogLogger) Sub(module string) waLog.Logger {
	return &slogLogger{logger: l.logger, module: l.module + "/" + module, min: l.min}
}
