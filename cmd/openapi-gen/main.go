// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scribe-dev/scribe/internal/server"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/scribe-dev/scribe/pkg/health"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/status.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec builds a status server and extracts the OpenAPI document huma
// derives from the route types. Handlers are never invoked.
func generateSpec() ([]byte, error) {
	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		Status:     stubStatus{},
		Providers:  stubProviders{},
	})
	if err != nil {
		return nil, scribeerr.Errorf(scribeerr.CodeCLISetupFailure, "creating server: %w", err)
	}

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

type stubStatus struct{}

func (stubStatus) Snapshot() health.Snapshot { return health.Snapshot{} }

type stubProviders struct{}

func (stubProviders) Health() map[string]health.Metrics { return nil }
