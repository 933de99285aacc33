// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/scribe-dev/scribe/internal/session"
	"github.com/scribe-dev/scribe/internal/session/whatsapp"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the paired WhatsApp session",
		Long: `Delete the local session store so the next 'scribe run' pairs again by QR
code. With --remote the device is first unlinked from the phone, which
requires the session to connect.

Stop a running bot before logging out.`,
		RunE: runLogout,
	}

	cmd.Flags().Bool("remote", false, "also unlink the device from the phone")
	cmd.Flags().Duration("timeout", 30*time.Second, "how long to wait for the session to connect with --remote")

	return cmd
}

func runLogout(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	storePath := resolveStorePath(resolveDataDir())
	remote, _ := cmd.Flags().GetBool("remote")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if _, err := os.Stat(storePath); os.IsNotExist(err) {
		_, _ = fmt.Fprintf(out, "No session store at %s, nothing to do.\n", storePath)
		return nil
	}

	if remote {
		ctx, cancel := context.WithTimeout(contextOrBackground(cmd), timeout)
		defer cancel()
		if err := remoteLogout(ctx, storePath); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, "Device unlinked from the phone.")
	}

	if err := whatsapp.ResetStore(storePath); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Removed session store %s. Run 'scribe run' to pair again.\n", storePath)
	return nil
}

// remoteLogout connects the stored device and unlinks it.
func remoteLogout(ctx context.Context, storePath string) error {
	paired, err := whatsapp.Paired(ctx, storePath)
	if err != nil {
		return err
	}
	if !paired {
		return scribeerr.New(scribeerr.CodeSessionAuthDenied, "device is not paired")
	}

	t, err := whatsapp.New(ctx, whatsapp.Config{StorePath: storePath, DeviceName: "scribe"})
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()

	if err := t.Initialize(ctx); err != nil {
		return err
	}
	if err := awaitReady(ctx, t.Events()); err != nil {
		return err
	}
	return t.Logout(ctx)
}

// awaitReady blocks until the session reports ready or fails.
func awaitReady(ctx context.Context, events <-chan session.Event) error {
	for {
		select {
		case <-ctx.Done():
			return scribeerr.Wrap(ctx.Err(), scribeerr.CodeSessionTransportFailure, "waiting for session to connect")
		case evt := <-events:
			switch evt.Kind {
			case session.EventReady:
				return nil
			case session.EventAuthFailure, session.EventQR:
				return scribeerr.Errorf(scribeerr.CodeSessionAuthDenied, "session cannot log in (%s)", evt.Kind)
			case session.EventDisconnected:
				return scribeerr.Errorf(scribeerr.CodeSessionTransportFailure, "session disconnected: %s", evt.Reason)
			}
		}
	}
}
