// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package session defines the messaging transport seen by the bot: an event
// stream, a liveness probe, and outbound text delivery.
package session

import (
	"context"
	"time"
)

// State is the transport's connection state as reported by a probe.
type State string

const (
	StateConnected    State = "CONNECTED"
	StateOpening      State = "OPENING"
	StatePairing      State = "PAIRING"
	StateUnpaired     State = "UNPAIRED"
	StateDisconnected State = "DISCONNECTED"
)

// Disconnect reasons.
const (
	ReasonNavigation     = "NAVIGATION"
	ReasonConflict       = "CONFLICT"
	ReasonLogout         = "LOGOUT"
	ReasonConnectFailure = "CONNECT_FAILURE"
	ReasonQRTimeout      = "QR_TIMEOUT"
	ReasonConnectionLost = "CONNECTION_LOST"
	ReasonUnknown        = "UNKNOWN"
)

// EventKind identifies a session event.
type EventKind string

const (
	EventReady         EventKind = "ready"
	EventQR            EventKind = "qr"
	EventAuthenticated EventKind = "authenticated"
	EventAuthFailure   EventKind = "auth_failure"
	EventDisconnected  EventKind = "disconnected"
	EventLoadingScreen EventKind = "loading_screen"
	EventChangeState   EventKind = "change_state"
	EventMessage       EventKind = "message"
)

// Event is one item of the transport event stream. Only the fields that
// belong to Kind are set.
type Event struct {
	Kind    EventKind
	At      time.Time
	Reason  string  // disconnected, auth_failure
	QRCode  string  // qr
	Percent int     // loading_screen
	Detail  string  // loading_screen, change_state
	Message Message // message
}

// Media is a downloaded attachment.
type Media struct {
	MimeType string
	Data     []byte
	Filename string
}

// ChatInfo describes the chat a message arrived in.
type ChatInfo struct {
	ID      string
	IsGroup bool
	IsMuted bool
}

// ContactInfo describes a message's sender.
type ContactInfo struct {
	ID          string
	Name        string
	PushName    string
	IsMyContact bool
}

// DisplayName returns the saved name, then the push name, then fallback.
func (c ContactInfo) DisplayName(fallback string) string {
	switch {
	case c.Name != "":
		return c.Name
	case c.PushName != "":
		return c.PushName
	default:
		return fallback
	}
}

// Message is an inbound message.
type Message interface {
	ID() string
	// From is the chat identifier; group chats end in "@g.us".
	From() string
	// Kind is the media kind: "chat", "ptt", "audio", "image", ...
	Kind() string
	Body() string
	HasMedia() bool
	FromMe() bool
	Timestamp() time.Time
	// DownloadMedia returns nil media with a nil error when the attachment
	// is no longer available.
	DownloadMedia(ctx context.Context) (*Media, error)
	Reply(ctx context.Context, text string) error
	Chat(ctx context.Context) (ChatInfo, error)
	Contact(ctx context.Context) (ContactInfo, error)
}

// Transport is a messaging session.
type Transport interface {
	// Events returns the event stream. The channel is never closed; consumers
	// stop on their own context.
	Events() <-chan Event
	// Initialize connects, pairing first if needed. It is safe to call again
	// after a disconnect.
	Initialize(ctx context.Context) error
	// State probes the connection.
	State(ctx context.Context) (State, error)
	// SendText delivers text to a user identifier.
	SendText(ctx context.Context, to, text string) error
	Close() error
}
