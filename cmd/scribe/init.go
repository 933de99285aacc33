// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/scribe-dev/scribe/internal/config"
	"github.com/scribe-dev/scribe/internal/secrets"
	"github.com/scribe-dev/scribe/internal/session/whatsapp"
	"github.com/scribe-dev/scribe/internal/transcription"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/spf13/cobra"
)

// initHTTPClient is used for API key validation. Tests replace it.
var initHTTPClient = &http.Client{Timeout: 10 * time.Second}

// validateKey checks a provider key. Tests replace it.
var validateKey = func(ctx context.Context, provider, key string) error {
	return transcription.ValidateKey(ctx, initHTTPClient, provider, key)
}

var supportedProviders = []string{"openai", "gemini"}

type initWizardStep int

const (
	stepProvider    initWizardStep = iota // select provider
	stepAPIKey                            // enter API key
	stepValidateKey                       // validating key (spinner)
	stepRecipient                         // enter recipient phone number
	stepDone                              // wizard complete
	stepError                             // terminal error
)

// initResult holds the collected wizard configuration.
type initResult struct {
	Provider  string
	APIKey    string
	Recipient string
}

type (
	validationSuccessMsg struct{}
	validationErrorMsg   struct{ err error }
	configWrittenMsg     struct{ path string }
)

type initModel struct {
	step           initWizardStep
	providerIdx    int
	apiKeyInput    textinput.Model
	recipientInput textinput.Model
	spinner        spinner.Model
	result         initResult
	validationErr  string
	configPath     string
	secretStore    secrets.Store
	errFinal       error
	forceOverwrite bool
}

func newInitModel(store secrets.Store) initModel {
	apiKey := textinput.New()
	apiKey.Placeholder = "paste API key here"
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.EchoCharacter = '•'

	recipient := textinput.New()
	recipient.Placeholder = "569XXXXXXXX"

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return initModel{
		step:           stepProvider,
		apiKeyInput:    apiKey,
		recipientInput: recipient,
		spinner:        sp,
		secretStore:    store,
	}
}

func (m initModel) Init() tea.Cmd {
	return nil
}

func (m initModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case validationSuccessMsg:
		m.step = stepRecipient
		m.validationErr = ""
		m.recipientInput.Focus()
		return m, textinput.Blink

	case validationErrorMsg:
		m.validationErr = msg.err.Error()
		m.step = stepAPIKey
		m.apiKeyInput.Focus()
		return m, nil

	case configWrittenMsg:
		m.step = stepDone
		m.configPath = msg.path
		return m, tea.Quit

	case error:
		m.step = stepError
		m.errFinal = msg
		return m, tea.Quit
	}

	return m.updateInputs(msg)
}

func (m initModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.step {
	case stepProvider:
		return m.handleProviderKey(msg)
	case stepAPIKey:
		return m.handleAPIKeyInput(msg)
	case stepRecipient:
		return m.handleRecipientInput(msg)
	}
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	return m, nil
}

func (m initModel) handleProviderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.providerIdx > 0 {
			m.providerIdx--
		}
	case "down", "j":
		if m.providerIdx < len(supportedProviders)-1 {
			m.providerIdx++
		}
	case "enter":
		m.result.Provider = supportedProviders[m.providerIdx]
		m.step = stepAPIKey
		m.validationErr = ""
		m.apiKeyInput.SetValue("")
		m.apiKeyInput.Focus()
		return m, textinput.Blink
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m initModel) handleAPIKeyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		key := strings.TrimSpace(m.apiKeyInput.Value())
		if key == "" {
			m.validationErr = "API key must not be empty"
			return m, nil
		}
		m.result.APIKey = key
		m.validationErr = ""
		m.step = stepValidateKey
		m.apiKeyInput.Blur()
		return m, tea.Batch(
			m.spinner.Tick,
			validateKeyCmd(m.result.Provider, key),
		)
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
	return m, cmd
}

func (m initModel) handleRecipientInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		number := strings.TrimSpace(m.recipientInput.Value())
		if _, err := whatsapp.ParseRecipient(number); err != nil {
			m.validationErr = "enter the phone number with country code, digits only"
			return m, nil
		}
		m.result.Recipient = strings.TrimPrefix(number, "+")
		m.validationErr = ""
		m.recipientInput.Blur()
		return m, writeConfigCmd(m.result, m.secretStore, m.forceOverwrite)
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.recipientInput, cmd = m.recipientInput.Update(msg)
	return m, cmd
}

func (m initModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.step {
	case stepAPIKey:
		m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
	case stepRecipient:
		m.recipientInput, cmd = m.recipientInput.Update(msg)
	}
	return m, cmd
}

func (m initModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Scribe Setup  ") + "\n\n")

	switch m.step {
	case stepProvider:
		b.WriteString(promptStyle.Render("Step 1/2: Choose a transcription provider") + "\n\n")
		for i, p := range supportedProviders {
			if i == m.providerIdx {
				b.WriteString(selectedStyle.Render("  > "+p) + "\n")
			} else {
				b.WriteString(dimStyle.Render("    "+p) + "\n")
			}
		}
		b.WriteString("\n" + dimStyle.Render("↑/↓ to navigate  enter to select  q to quit"))

	case stepAPIKey:
		b.WriteString(promptStyle.Render("Step 1/2: "+m.result.Provider+" API key") + "\n\n")
		b.WriteString(m.apiKeyInput.View() + "\n")
		m.writeValidationErr(&b)
		b.WriteString("\n" + dimStyle.Render("enter to continue  ctrl+c to quit"))

	case stepValidateKey:
		b.WriteString(m.spinner.View() + " Validating " + m.result.Provider + " API key…\n")

	case stepRecipient:
		b.WriteString(promptStyle.Render("Step 2/2: Who receives the transcripts?") + "\n\n")
		b.WriteString(m.recipientInput.View() + "\n")
		m.writeValidationErr(&b)
		b.WriteString("\n" + dimStyle.Render("phone number with country code  enter to finish"))

	case stepDone:
		b.WriteString(successStyle.Render("  Setup complete!  ") + "\n\n")
		if m.configPath != "" {
			b.WriteString(dimStyle.Render("Config written to: "+m.configPath) + "\n\n")
		}
		b.WriteString("Run " + promptStyle.Render("scribe run") + " and scan the QR code with WhatsApp.\n")
		b.WriteString("Run " + promptStyle.Render("scribe doctor") + " to verify setup.\n")

	case stepError:
		b.WriteString(errorStyle.Render("Setup failed: "+m.errFinal.Error()) + "\n")
	}

	return boxStyle.Render(b.String())
}

func (m initModel) writeValidationErr(b *strings.Builder) {
	if m.validationErr != "" {
		b.WriteString("\n" + errorStyle.Render("  "+m.validationErr) + "\n")
	}
}

func validateKeyCmd(provider, key string) tea.Cmd {
	return func() tea.Msg {
		if err := validateKey(context.Background(), provider, key); err != nil {
			return validationErrorMsg{err: err}
		}
		return validationSuccessMsg{}
	}
}

func writeConfigCmd(result initResult, store secrets.Store, forceOverwrite bool) tea.Cmd {
	return func() tea.Msg {
		path, err := storeSecretAndWriteConfig(result, store, forceOverwrite)
		if err != nil {
			return err
		}
		return configWrittenMsg{path: path}
	}
}

// providerSecretName is the keyring entry holding a provider's API key.
func providerSecretName(provider string) string {
	return provider + "-api-key"
}

// GenerateConfigYAML produces a minimal scribe.yaml from the wizard result.
// The API key is referenced via a keyring:// URI.
func GenerateConfigYAML(result initResult) string {
	var sb strings.Builder
	sb.WriteString("# Scribe configuration, generated by scribe init.\n")
	sb.WriteString("# Every other setting uses its default; see 'scribe config'.\n\n")

	sb.WriteString("transcription:\n")
	fmt.Fprintf(&sb, "  provider: %s\n", result.Provider)
	fmt.Fprintf(&sb, "  %s:\n", result.Provider)
	fmt.Fprintf(&sb, "    api_key: %q\n\n", secrets.URI(providerSecretName(result.Provider)))

	sb.WriteString("relay:\n")
	fmt.Fprintf(&sb, "  recipient: %q\n", result.Recipient+"@c.us")

	return sb.String()
}

// storeSecretAndWriteConfig saves the API key to the keyring and writes the
// config file. An existing config is only replaced with forceOverwrite or
// when it is the untouched bootstrapped default.
func storeSecretAndWriteConfig(result initResult, store secrets.Store, forceOverwrite bool) (string, error) {
	if err := store.Store(secrets.ServiceName, providerSecretName(result.Provider), result.APIKey); err != nil {
		return "", scribeerr.Errorf(scribeerr.CodeSecretStoreFailure, "storing %s API key: %w", result.Provider, err)
	}

	cfgPath, err := configPathForWrite()
	if err != nil {
		return "", err
	}

	if !forceOverwrite {
		if existing, readErr := os.ReadFile(cfgPath); readErr == nil && !bytes.Equal(existing, config.DefaultConfigYAML) {
			return "", scribeerr.Errorf(scribeerr.CodeCLIConfigExists,
				"config file already exists at %s; use --force to overwrite", cfgPath)
		}
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", scribeerr.Errorf(scribeerr.CodeConfigLoadReadFailure, "creating config directory %s: %w", dir, err)
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateConfigYAML(result)), 0o600); err != nil {
		return "", scribeerr.Errorf(scribeerr.CodeConfigLoadReadFailure, "writing config to %s: %w", cfgPath, err)
	}

	return cfgPath, nil
}

// configPathForWrite returns where init writes the config. Tests override it.
var configPathForWrite = config.DefaultConfigPath

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard",
		Long: `Run an interactive wizard that walks you through:
  1. Choosing a transcription provider (OpenAI Whisper or Gemini) and its API key
  2. Setting the phone number that receives transcripts

The API key is stored in the OS keyring and referenced via a keyring:// URI
in the config file.`,
		RunE: runInit,
	}

	cmd.Flags().Bool("force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(f) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(),
			"scribe init requires an interactive terminal.\n"+
				"To configure scribe non-interactively, edit ~/.config/scribe/scribe.yaml directly.")
		return scribeerr.New(scribeerr.CodeCLISetupFailure, "scribe init: not an interactive terminal")
	}

	forceOverwrite, _ := cmd.Flags().GetBool("force")

	m := newInitModel(secretStoreFactory())
	m.forceOverwrite = forceOverwrite

	finalModel, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return scribeerr.Errorf(scribeerr.CodeCLISetupFailure, "init wizard error: %w", err)
	}

	fm, ok := finalModel.(initModel)
	if !ok {
		return scribeerr.New(scribeerr.CodeCLISetupFailure, "unexpected model type after wizard")
	}
	if fm.errFinal != nil {
		return scribeerr.Errorf(scribeerr.CodeCLISetupFailure, "init failed: %w", fm.errFinal)
	}
	if fm.step == stepDone {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", fm.configPath)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
