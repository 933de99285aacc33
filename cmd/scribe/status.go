// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/scribe-dev/scribe/internal/server"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	pkghealth "github.com/scribe-dev/scribe/pkg/health"
	"github.com/spf13/cobra"
)

const labelWidth = 16

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(labelWidth)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show bot status",
		Long:  "Query a running bot's status endpoint and display session health and transcription providers.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", defaultStatusAddr, "status server address to query")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	var body server.StatusBody
	if err := newBotClient(addr).getJSON("/api/v1/status", &body); err != nil {
		if scribeerr.HasCode(err, scribeerr.CodeCLIGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Bot at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Bot at %s: %s\n", addr, err)
		return nil
	}

	_, err := fmt.Fprintln(out, renderStatus(addr, body))
	return err
}

func renderStatus(addr string, body server.StatusBody) string {
	var b strings.Builder
	s := body.Session

	b.WriteString(titleStyle.Render("scribe "+body.Version) + dimStyle.Render(" @ "+addr) + "\n\n")

	state := successStyle.Render(s.Status)
	switch {
	case s.Status == pkghealth.StatusRestarting:
		state = errorStyle.Render(s.Status)
	case !s.Ready:
		state = warnStyle.Render(s.Status)
	}
	writeRow(&b, "Session", state)
	writeRow(&b, "Uptime", (time.Duration(body.UptimeSeconds) * time.Second).String())
	writeRow(&b, "Last activity", fmt.Sprintf("%s (%s ago)",
		s.LastActivityAt.Local().Format(time.DateTime), time.Duration(s.IdleSeconds)*time.Second))
	if s.LastCheckAt != nil {
		writeRow(&b, "Last check", s.LastCheckAt.Local().Format(time.DateTime))
	}
	if p := s.LastProbe; p != nil {
		probe := p.Result
		if p.State != "" {
			probe += " (" + p.State + ")"
		}
		if p.Error != "" {
			probe = errorStyle.Render(probe + ": " + p.Error)
		}
		writeRow(&b, "Last probe", probe)
	}
	if s.PendingRecovery != "" {
		writeRow(&b, "Pending", warnStyle.Render(s.PendingRecovery))
	}

	if len(body.Providers) > 0 {
		b.WriteString("\n" + promptStyle.Render("Transcription") + "\n")
		for _, p := range body.Providers {
			avail := successStyle.Render("available")
			if !p.Available {
				avail = errorStyle.Render("cooling down")
				if p.CooldownUntil != nil {
					avail += dimStyle.Render(" until " + p.CooldownUntil.Local().Format(time.TimeOnly))
				}
			}
			writeRow(&b, p.Name, fmt.Sprintf("%s  %d failures", avail, p.FailureCount))
		}
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + value + "\n")
}
