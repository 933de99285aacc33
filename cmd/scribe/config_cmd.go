// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"fmt"

	"github.com/scribe-dev/scribe/internal/config"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, config file and environment are
merged, as YAML. API keys are redacted; validation problems are listed on
stderr.`,
		RunE: runConfig,
	}
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Unmarshal(viper.GetViper())
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return scribeerr.Wrap(err, scribeerr.CodeCLISetupFailure, "encoding config")
	}

	if path := viper.ConfigFileUsed(); path != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", path)
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return err
	}

	for _, verr := range cfg.Validate() {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", verr)
	}
	return nil
}
