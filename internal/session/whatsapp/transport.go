// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

// Package whatsapp implements session.Transport on top of whatsmeow, with the
// device store kept in a local SQLite database.
package whatsapp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/benbjohnson/clock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"github.com/scribe-dev/scribe/internal/session"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

const eventBuffer = 256

// Config configures the transport.
type Config struct {
	StorePath  string
	DeviceName string
	// LogLevel is the minimum level forwarded from whatsmeow's own logger.
	LogLevel slog.Level
	Clock    clock.Clock
}

// Transport is a whatsmeow-backed session.
type Transport struct {
	cfg       Config
	clock     clock.Clock
	container *sqlstore.Container
	events    chan session.Event
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	client    *whatsmeow.Client
	qrCancel  context.CancelFunc
	keepAlive bool // true while keepalives are failing
}

var _ session.Transport = (*Transport)(nil)

// New opens (creating if needed) the device store.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.DeviceName != "" {
		store.DeviceProps.Os = proto.String(cfg.DeviceName)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o700); err != nil {
		return nil, scribeerr.Wrap(err, scribeerr.CodeSessionStoreFailure, "creating session store directory")
	}

	container, err := sqlstore.New(ctx, "sqlite3", storeDSN(cfg.StorePath), newLogger("store", slog.LevelWarn))
	if err != nil {
		return nil, scribeerr.Wrap(err, scribeerr.CodeSessionStoreFailure, "opening session store")
	}

	return &Transport{
		cfg:       cfg,
		clock:     cfg.Clock,
		container: container,
		events:    make(chan session.Event, eventBuffer),
		done:      make(chan struct{}),
	}, nil
}

func storeDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on"
}

func (t *Transport) Events() <-chan session.Event {
	return t.events
}

// Initialize tears down any previous client and connects a fresh one. An
// unpaired device starts the QR pairing flow.
func (t *Transport) Initialize(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.done:
		return scribeerr.New(scribeerr.CodeSessionTransportFailure, "Session closed: transport is shut down")
	default:
	}

	t.teardownLocked()

	device, err := t.container.GetFirstDevice(ctx)
	if err != nil {
		return scribeerr.Wrap(err, scribeerr.CodeSessionStoreFailure, "loading device")
	}

	client := whatsmeow.NewClient(device, newLogger("client", t.cfg.LogLevel))
	client.EnableAutoReconnect = false
	client.AddEventHandler(t.handle)
	t.client = client
	t.keepAlive = false

	if client.Store.ID == nil {
		qrCtx, cancel := context.WithCancel(context.Background())
		qrChan, err := client.GetQRChannel(qrCtx)
		if err != nil {
			cancel()
			return scribeerr.Wrap(err, scribeerr.CodeSessionTransportFailure, "starting pairing")
		}
		t.qrCancel = cancel
		go t.consumeQR(qrChan)
	}

	if err := client.Connect(); err != nil {
		return scribeerr.Wrap(err, scribeerr.CodeSessionTransportFailure, "connecting")
	}

	slog.Info("session initializing", "paired", client.Store.ID != nil)
	return nil
}

func (t *Transport) teardownLocked() {
	if t.qrCancel != nil {
		t.qrCancel()
		t.qrCancel = nil
	}
	if t.client != nil {
		t.client.RemoveEventHandlers()
		t.client.Disconnect()
		t.client = nil
	}
}

func (t *Transport) consumeQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		if ev, ok := translateQR(item.Event, item.Code, t.clock.Now()); ok {
			t.emit(ev)
		}
	}
}

func (t *Transport) handle(evt any) {
	now := t.clock.Now()

	switch e := evt.(type) {
	case *events.Message:
		if e.Info.Chat == types.StatusBroadcastJID {
			return
		}
		t.mu.Lock()
		client := t.client
		t.mu.Unlock()
		if client == nil {
			return
		}
		t.emit(session.Event{Kind: session.EventMessage, At: now,
			Message: &message{client: client, evt: e, now: t.clock.Now}})
		return
	case *events.KeepAliveTimeout:
		t.setKeepAliveFailing(true)
	case *events.KeepAliveRestored:
		t.setKeepAliveFailing(false)
	}

	if ev, ok := translate(evt, now); ok {
		t.emit(ev)
	}
}

func (t *Transport) setKeepAliveFailing(v bool) {
	t.mu.Lock()
	t.keepAlive = v
	t.mu.Unlock()
}

func (t *Transport) emit(ev session.Event) {
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

// State reports CONNECTED only for a live, logged-in socket whose keepalives
// are succeeding.
func (t *Transport) State(ctx context.Context) (session.State, error) {
	t.mu.Lock()
	client, failing := t.client, t.keepAlive
	t.mu.Unlock()

	if client == nil {
		return "", scribeerr.New(scribeerr.CodeSessionProbeFailure, "Session closed: no active client")
	}
	if err := ctx.Err(); err != nil {
		return "", scribeerr.Wrap(err, scribeerr.CodeSessionProbeFailure, "probing session")
	}

	switch {
	case !client.IsConnected():
		return session.StateDisconnected, nil
	case client.Store.ID == nil:
		return session.StatePairing, nil
	case !client.IsLoggedIn():
		return session.StateOpening, nil
	case failing:
		return "", scribeerr.New(scribeerr.CodeSessionProbeFailure, "keepalive timed out")
	}
	return session.StateConnected, nil
}

// SendText sends a plain text message to a user.
func (t *Transport) SendText(ctx context.Context, to, text string) error {
	jid, err := ParseRecipient(to)
	if err != nil {
		return err
	}

	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return scribeerr.New(scribeerr.CodeRelaySessionNotReady, "no active client", scribeerr.FieldRecipient(to))
	}

	if _, err := client.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)}); err != nil {
		return scribeerr.Wrap(err, scribeerr.CodeRelaySendFailure, "sending message", scribeerr.FieldRecipient(to))
	}
	return nil
}

// Logout unlinks the device from the phone and clears the local store.
func (t *Transport) Logout(ctx context.Context) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	if client == nil || client.Store.ID == nil {
		return scribeerr.New(scribeerr.CodeSessionAuthDenied, "device is not paired")
	}
	if err := client.Logout(ctx); err != nil {
		return scribeerr.Wrap(err, scribeerr.CodeSessionTransportFailure, "logging out")
	}
	return nil
}

// Close disconnects, stops event delivery and closes the store. It is
// idempotent.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.mu.Lock()
		t.teardownLocked()
		t.mu.Unlock()
		if cerr := t.container.Close(); cerr != nil {
			err = scribeerr.Wrap(cerr, scribeerr.CodeSessionStoreFailure, "closing session store")
		}
	})
	return err
}

// Paired reports whether the store at path holds a linked device.
func Paired(ctx context.Context, path string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}

	container, err := sqlstore.New(ctx, "sqlite3", storeDSN(path), newLogger("store", slog.LevelWarn))
	if err != nil {
		return false, scribeerr.Wrap(err, scribeerr.CodeSessionStoreFailure, "opening session store")
	}
	defer func() { _ = container.Close() }()

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return false, scribeerr.Wrap(err, scribeerr.CodeSessionStoreFailure, "loading device")
	}
	return device.ID != nil, nil
}

// ResetStore deletes the session database and its SQLite side files.
func ResetStore(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return scribeerr.Wrap(err, scribeerr.CodeSessionStoreFailure, "removing "+p)
		}
	}
	return nil
}

// PrintQR renders a pairing code for a terminal.
func PrintQR(w io.Writer, code string) {
	qrterminal.GenerateHalfBlock(code, qrterminal.L, w)
}
