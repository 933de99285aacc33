// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package config

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/scribe-dev/scribe/internal/secrets"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level Scribe configuration.
type Config struct {
	DataDir       string              `mapstructure:"data_dir" yaml:"data_dir"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Session       SessionConfig       `mapstructure:"session" yaml:"session"`
	Transcription TranscriptionConfig `mapstructure:"transcription" yaml:"transcription"`
	Relay         RelayConfig         `mapstructure:"relay" yaml:"relay"`
	Media         MediaConfig         `mapstructure:"media" yaml:"media"`
	Health        HealthConfig        `mapstructure:"health" yaml:"health"`
	Server        ServerConfig        `mapstructure:"server" yaml:"server"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// SessionConfig controls the messaging session and its credential store.
type SessionConfig struct {
	StorePath  string `mapstructure:"store_path" yaml:"store_path"`
	DeviceName string `mapstructure:"device_name" yaml:"device_name"`
	PrintQR    bool   `mapstructure:"print_qr" yaml:"print_qr"`
}

// TranscriptionConfig selects the speech-to-text backend and its fallbacks.
type TranscriptionConfig struct {
	Provider string        `mapstructure:"provider" yaml:"provider"`
	Failover []string      `mapstructure:"failover" yaml:"failover"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Cooldown time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	OpenAI   OpenAIConfig  `mapstructure:"openai" yaml:"openai"`
	Gemini   GeminiConfig  `mapstructure:"gemini" yaml:"gemini"`
}

// OpenAIConfig configures the Whisper transcription endpoint.
type OpenAIConfig struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	Model    string `mapstructure:"model" yaml:"model"`
	Language string `mapstructure:"language" yaml:"language"`
	Prompt   string `mapstructure:"prompt" yaml:"prompt"`
}

// GeminiConfig configures the Gemini audio transcription backend.
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"`
	Prompt  string `mapstructure:"prompt" yaml:"prompt"`
}

// RelayConfig names the single recipient of every transcript.
type RelayConfig struct {
	Recipient string `mapstructure:"recipient" yaml:"recipient"`
}

// MediaConfig controls per-message handling.
type MediaConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	SkipMutedGroups bool          `mapstructure:"skip_muted_groups" yaml:"skip_muted_groups"`
	Commands        bool          `mapstructure:"commands" yaml:"commands"`
	MaxInFlight     int           `mapstructure:"max_in_flight" yaml:"max_in_flight"`
}

// HealthConfig holds the supervisor thresholds and recovery delays.
type HealthConfig struct {
	CheckInterval         time.Duration `mapstructure:"check_interval" yaml:"check_interval"`
	StaleAfter            time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
	NotReadyRestartAfter  time.Duration `mapstructure:"not_ready_restart_after" yaml:"not_ready_restart_after"`
	RestartGrace          time.Duration `mapstructure:"restart_grace" yaml:"restart_grace"`
	FatalRestartGrace     time.Duration `mapstructure:"fatal_restart_grace" yaml:"fatal_restart_grace"`
	NavigationReinitDelay time.Duration `mapstructure:"navigation_reinit_delay" yaml:"navigation_reinit_delay"`
	ReinitDelay           time.Duration `mapstructure:"reinit_delay" yaml:"reinit_delay"`
	ProbeTimeout          time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	FatalSignatures       []string      `mapstructure:"fatal_signatures" yaml:"fatal_signatures"`
	ExitCode              int           `mapstructure:"exit_code" yaml:"exit_code"`
}

// ServerConfig controls the local status endpoint.
type ServerConfig struct {
	Enabled     bool     `mapstructure:"enabled" yaml:"enabled"`
	Listen      string   `mapstructure:"listen" yaml:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

var (
	validProviders  = []string{"openai", "gemini"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("session.store_path", "")
	v.SetDefault("session.device_name", "scribe")
	v.SetDefault("session.print_qr", true)

	v.SetDefault("transcription.provider", "openai")
	v.SetDefault("transcription.failover", []string{})
	v.SetDefault("transcription.timeout", 30*time.Second)
	v.SetDefault("transcription.cooldown", 30*time.Second)
	v.SetDefault("transcription.openai.api_key", "")
	v.SetDefault("transcription.openai.base_url", "")
	v.SetDefault("transcription.openai.model", "whisper-1")
	v.SetDefault("transcription.openai.language", "")
	v.SetDefault("transcription.openai.prompt", "")
	v.SetDefault("transcription.gemini.api_key", "")
	v.SetDefault("transcription.gemini.base_url", "")
	v.SetDefault("transcription.gemini.model", "gemini-2.5-flash")
	v.SetDefault("transcription.gemini.prompt", "Transcribe this voice message verbatim in its original language. Reply with the transcript only.")

	v.SetDefault("relay.recipient", "")

	v.SetDefault("media.timeout", 30*time.Second)
	v.SetDefault("media.skip_muted_groups", true)
	v.SetDefault("media.commands", true)
	v.SetDefault("media.max_in_flight", 8)

	v.SetDefault("health.check_interval", 10*time.Minute)
	v.SetDefault("health.stale_after", 2*time.Hour)
	v.SetDefault("health.not_ready_restart_after", 30*time.Minute)
	v.SetDefault("health.restart_grace", 2*time.Second)
	v.SetDefault("health.fatal_restart_grace", 5*time.Second)
	v.SetDefault("health.navigation_reinit_delay", 5*time.Second)
	v.SetDefault("health.reinit_delay", 10*time.Second)
	v.SetDefault("health.probe_timeout", 30*time.Second)
	v.SetDefault("health.fatal_signatures", []string{"Session closed", "Protocol error"})
	v.SetDefault("health.exit_code", 1)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.listen", "127.0.0.1:18790")
	v.SetDefault("server.cors_origins", []string{})
}

// SetupEnv binds SCRIBE_* variables plus the legacy unprefixed names.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("SCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings take every listed name; the prefixed one wins.
	_ = v.BindEnv("transcription.openai.api_key", "SCRIBE_TRANSCRIPTION_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("transcription.gemini.api_key", "SCRIBE_TRANSCRIPTION_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("relay.recipient", "SCRIBE_RELAY_RECIPIENT", "MY_PHONE_NUMBER")
}

// DotEnvFile is the dotenv file read from the working directory.
const DotEnvFile = ".env"

// dotEnvKeys maps the variables honoured in a .env file to config keys.
var dotEnvKeys = map[string]string{
	"OPENAI_API_KEY":  "transcription.openai.api_key",
	"GEMINI_API_KEY":  "transcription.gemini.api_key",
	"MY_PHONE_NUMBER": "relay.recipient",
}

// MergeDotEnv layers the known variables of the dotenv file at path over
// the config file already read into v. Process environment still wins. A
// missing file is ignored.
func MergeDotEnv(v *viper.Viper, path string) error {
	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return scribeerr.Errorf(scribeerr.CodeConfigParseInvalidFormat, "reading %s: %w", path, err)
	}

	merged := map[string]any{}
	for name, key := range dotEnvKeys {
		if !env.IsSet(name) {
			continue
		}
		parts := strings.Split(key, ".")
		node := merged
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = env.GetString(name)
	}
	if len(merged) == 0 {
		return nil
	}
	return v.MergeConfigMap(merged)
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix SCRIBE_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, scribeerr.Errorf(scribeerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}
	if err := MergeDotEnv(v, DotEnvFile); err != nil {
		return nil, err
	}

	return FromViper(v, nil)
}

// FromViper resolves keyring:// values through store (when non-nil),
// unmarshals v and validates the result.
func FromViper(v *viper.Viper, store secrets.Store) (*Config, error) {
	if store != nil {
		secrets.ResolveViperSecrets(v, store)
	}

	cfg, err := Unmarshal(v)
	if err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, scribeerr.Errorf(scribeerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return cfg, nil
}

// Unmarshal decodes v without validating or resolving secrets.
func Unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, scribeerr.Errorf(scribeerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Redacted returns a copy with literal API keys masked. keyring:// references
// are kept since they hold no secret.
func (c Config) Redacted() Config {
	c.Transcription.OpenAI.APIKey = redact(c.Transcription.OpenAI.APIKey)
	c.Transcription.Gemini.APIKey = redact(c.Transcription.Gemini.APIKey)
	return c
}

func redact(v string) string {
	if v == "" || secrets.IsKeyringURI(v) {
		return v
	}
	return "[redacted]"
}

// ResolvedDataDir returns DataDir, falling back to ~/.scribe.
func (c *Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scribe"
	}
	return filepath.Join(home, ".scribe")
}

// SessionStorePath returns the SQLite path holding the paired device.
func (c *Config) SessionStorePath() string {
	if c.Session.StorePath != "" {
		return c.Session.StorePath
	}
	return filepath.Join(c.ResolvedDataDir(), "session.db")
}

// Providers returns the primary provider followed by its failover chain.
func (c *Config) Providers() []string {
	out := []string{c.Transcription.Provider}
	for _, p := range c.Transcription.Failover {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateTranscription()...)
	errs = append(errs, c.validateRelay()...)
	errs = append(errs, c.validateMedia()...)
	errs = append(errs, c.validateHealth()...)
	errs = append(errs, c.validateServer()...)

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	if !slices.Contains(validLogLevels, c.Logging.Level) {
		errs = append(errs, invalid("config: logging.level must be one of %v, got %q", validLogLevels, c.Logging.Level))
	}
	if !slices.Contains(validLogFormats, c.Logging.Format) {
		errs = append(errs, invalid("config: logging.format must be one of %v, got %q", validLogFormats, c.Logging.Format))
	}

	return errs
}

func (c *Config) validateTranscription() []error {
	var errs []error
	t := c.Transcription

	if !slices.Contains(validProviders, t.Provider) {
		errs = append(errs, invalid("config: transcription.provider must be one of %v, got %q", validProviders, t.Provider))
	}
	for i, p := range t.Failover {
		if !slices.Contains(validProviders, p) {
			errs = append(errs, invalid("config: transcription.failover[%d] must be one of %v, got %q", i, validProviders, p))
		}
	}

	if t.Timeout <= 0 {
		errs = append(errs, invalid("config: transcription.timeout must be greater than 0, got %s", t.Timeout))
	}
	if t.Cooldown <= 0 {
		errs = append(errs, invalid("config: transcription.cooldown must be greater than 0, got %s", t.Cooldown))
	}

	used := c.Providers()
	if slices.Contains(used, "openai") {
		if t.OpenAI.APIKey == "" {
			errs = append(errs, invalid("config: transcription.openai.api_key is required (set OPENAI_API_KEY)"))
		}
		if t.OpenAI.Model == "" {
			errs = append(errs, invalid("config: transcription.openai.model must not be empty"))
		}
	}
	if slices.Contains(used, "gemini") {
		if t.Gemini.APIKey == "" {
			errs = append(errs, invalid("config: transcription.gemini.api_key is required (set GEMINI_API_KEY)"))
		}
		if t.Gemini.Model == "" {
			errs = append(errs, invalid("config: transcription.gemini.model must not be empty"))
		}
	}

	return errs
}

func (c *Config) validateRelay() []error {
	r := c.Relay.Recipient
	if strings.TrimSpace(r) == "" {
		return []error{invalid("config: relay.recipient is required (set MY_PHONE_NUMBER, e.g. 569XXXXXXXX@c.us)")}
	}

	// Same forms the session layer accepts: "+569...", "569...", "569...@c.us".
	number := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(r), "+"))
	user, server, found := strings.Cut(number, "@")
	if found && server != "c.us" && server != "s.whatsapp.net" {
		return []error{invalid("config: relay.recipient must be a user address (@c.us or @s.whatsapp.net), got %q", r)}
	}
	if user == "" {
		return []error{invalid("config: relay.recipient must include a phone number, got %q", r)}
	}
	for _, ch := range user {
		if ch < '0' || ch > '9' {
			return []error{invalid("config: relay.recipient phone number must be digits only, got %q", r)}
		}
	}

	return nil
}

func (c *Config) validateMedia() []error {
	var errs []error

	if c.Media.Timeout <= 0 {
		errs = append(errs, invalid("config: media.timeout must be greater than 0, got %s", c.Media.Timeout))
	}
	if c.Media.MaxInFlight <= 0 {
		errs = append(errs, invalid("config: media.max_in_flight must be greater than 0, got %d", c.Media.MaxInFlight))
	}

	return errs
}

func (c *Config) validateHealth() []error {
	var errs []error
	h := c.Health

	durations := []struct {
		key string
		val time.Duration
	}{
		{"check_interval", h.CheckInterval},
		{"stale_after", h.StaleAfter},
		{"not_ready_restart_after", h.NotReadyRestartAfter},
		{"restart_grace", h.RestartGrace},
		{"fatal_restart_grace", h.FatalRestartGrace},
		{"navigation_reinit_delay", h.NavigationReinitDelay},
		{"reinit_delay", h.ReinitDelay},
		{"probe_timeout", h.ProbeTimeout},
	}
	for _, d := range durations {
		if d.val <= 0 {
			errs = append(errs, invalid("config: health.%s must be greater than 0, got %s", d.key, d.val))
		}
	}

	if h.ExitCode < 1 || h.ExitCode > 255 {
		errs = append(errs, invalid("config: health.exit_code must be between 1 and 255, got %d", h.ExitCode))
	}
	for i, sig := range h.FatalSignatures {
		if strings.TrimSpace(sig) == "" {
			errs = append(errs, invalid("config: health.fatal_signatures[%d] must not be blank", i))
		}
	}

	return errs
}

func (c *Config) validateServer() []error {
	if !c.Server.Enabled {
		return nil
	}

	if c.Server.Listen == "" {
		return []error{invalid("config: server.listen must not be empty")}
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		return []error{invalid("config: server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err)}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return []error{invalid("config: server.listen port must be a number, got %q", portStr)}
	}
	if port < 1 || port > 65535 {
		return []error{invalid("config: server.listen port must be between 1 and 65535, got %d", port)}
	}

	return nil
}

func invalid(format string, args ...any) error {
	return scribeerr.Errorf(scribeerr.CodeConfigValidateInvalidValue, format, args...)
}
