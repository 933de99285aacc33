// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

const (
	groupRead fs.FileMode = 0o040
	otherRead fs.FileMode = 0o004
)

// InsecurePermissions reports whether the file at path is readable by group
// or others. A missing or unreadable file is not reported as insecure.
func InsecurePermissions(path string) (fs.FileMode, bool) {
	if path == "" {
		return 0, false
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return 0, false
	}

	perm := info.Mode().Perm()
	return perm, perm&(groupRead|otherRead) != 0
}

// WarnInsecurePermissions logs a warning when the config file holding API
// keys is readable by other users. It never fails startup.
func WarnInsecurePermissions(path string) {
	if mode, insecure := InsecurePermissions(path); insecure {
		slog.Warn("config file has insecure permissions, API keys may be readable by other users",
			"path", path,
			"mode", mode,
			"recommended", "0600",
		)
	}
}
