// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"fmt"
	"io"
	"os"

	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints err, adding a setup hint when the configuration is at fault.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, err)
	if scribeerr.IsConfigFailure(err) {
		fmt.Fprintln(w, "hint: run `scribe init` to write a config, or `scribe config` to see the one in effect")
	}
}
