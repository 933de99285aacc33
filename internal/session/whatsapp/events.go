// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package whatsapp

import (
	"fmt"
	"time"

	"github.com/scribe-dev/scribe/internal/session"
	"go.mau.fi/whatsmeow/types/events"
)

// Change-state details emitted for keepalive transitions.
const (
	DetailKeepAliveTimeout  = "KEEPALIVE_TIMEOUT"
	DetailKeepAliveRestored = "KEEPALIVE_RESTORED"
)

// translate maps a whatsmeow connection event onto the session event stream.
// Message events are handled separately since they need the client.
func translate(evt any, now time.Time) (session.Event, bool) {
	switch e := evt.(type) {
	case *events.Connected:
		return session.Event{Kind: session.EventReady, At: now}, true

	case *events.PairSuccess:
		return session.Event{Kind: session.EventAuthenticated, At: now, Detail: e.ID.String()}, true

	case *events.PairError:
		return session.Event{Kind: session.EventAuthFailure, At: now, Reason: fmt.Sprintf("pairing failed: %v", e.Error)}, true

	case *events.ClientOutdated:
		return session.Event{Kind: session.EventAuthFailure, At: now, Reason: "client outdated"}, true

	case *events.TemporaryBan:
		return session.Event{Kind: session.EventAuthFailure, At: now, Reason: fmt.Sprintf("temporary ban: %v", e)}, true

	case *events.LoggedOut:
		return session.Event{Kind: session.EventDisconnected, At: now, Reason: session.ReasonLogout,
			Detail: fmt.Sprintf("%v", e.Reason)}, true

	case *events.StreamReplaced:
		return session.Event{Kind: session.EventDisconnected, At: now, Reason: session.ReasonConflict}, true

	case *events.ConnectFailure:
		return session.Event{Kind: session.EventDisconnected, At: now, Reason: session.ReasonConnectFailure,
			Detail: fmt.Sprintf("%v %s", e.Reason, e.Message)}, true

	case *events.Disconnected:
		return session.Event{Kind: session.EventDisconnected, At: now, Reason: session.ReasonConnectionLost}, true

	case *events.KeepAliveTimeout:
		return session.Event{Kind: session.EventChangeState, At: now,
			Detail: fmt.Sprintf("%s (errors=%d)", DetailKeepAliveTimeout, e.ErrorCount)}, true

	case *events.KeepAliveRestored:
		return session.Event{Kind: session.EventChangeState, At: now, Detail: DetailKeepAliveRestored}, true

	case *events.OfflineSyncPreview:
		return session.Event{Kind: session.EventLoadingScreen, At: now, Percent: 0,
			Detail: fmt.Sprintf("syncing %d offline events", e.Total)}, true

	case *events.OfflineSyncCompleted:
		return session.Event{Kind: session.EventLoadingScreen, At: now, Percent: 100,
			Detail: fmt.Sprintf("synced %d offline events", e.Count)}, true
	}
	return session.Event{}, false
}

// translateQR maps a pairing channel item. "success" is skipped because
// PairSuccess already reports it.
func translateQR(event, code string, now time.Time) (session.Event, bool) {
	switch event {
	case "code":
		return session.Event{Kind: session.EventQR, At: now, QRCode: code}, true
	case "timeout":
		return session.Event{Kind: session.EventDisconnected, At: now, Reason: session.ReasonQRTimeout}, true
	case "success":
		return session.Event{}, false
	default:
		return session.Event{Kind: session.EventAuthFailure, At: now, Reason: "pairing: " + event}, true
	}
}
