// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"errors"

	"github.com/scribe-dev/scribe/internal/config"
	"github.com/scribe-dev/scribe/internal/secrets"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultStatusAddr is where `scribe run` serves its status API by default.
const defaultStatusAddr = "127.0.0.1:18790"

// secretStoreFactory creates a secrets.Store. Tests substitute an in-memory
// implementation.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// NewRootCmd creates the root scribe command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scribe",
		Short: "Scribe: voice-note transcription relay",
		Long: "Scribe listens to a WhatsApp session for voice notes, transcribes them, " +
			"and relays the text to a single recipient.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(),
		newRunCmd(),
		newStatusCmd(),
		newDoctorCmd(),
		newSecretCmd(),
		newConfigCmd(),
		newLogoutCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return scribeerr.Errorf(scribeerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted: with it set, Viper also tries the bare
		// name, which collides with a ./scribe binary.
		v.SetConfigName("scribe")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/scribe")
		v.AddConfigPath("/etc/scribe")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return scribeerr.Errorf(scribeerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return scribeerr.Errorf(scribeerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	if err := config.MergeDotEnv(v, config.DotEnvFile); err != nil {
		return err
	}

	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return scribeerr.Errorf(scribeerr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return scribeerr.Errorf(scribeerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	return nil
}

// loadConfig builds the validated configuration from the global Viper,
// resolving keyring:// references.
func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper(), secretStoreFactory())
}
