// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package whatsapp_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scribe-dev/scribe/internal/session"
	"github.com/scribe-dev/scribe/internal/session/whatsapp"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestParseRecipient(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"56911111111", "56911111111@s.whatsapp.net"},
		{"56911111111@c.us", "56911111111@s.whatsapp.net"},
		{"+56911111111", "56911111111@s.whatsapp.net"},
		{" 56911111111@s.whatsapp.net ", "56911111111@s.whatsapp.net"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			jid, err := whatsapp.ParseRecipient(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, jid.String())
		})
	}
}

func TestParseRecipient_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "abc@c.us", "123-456@g.us", "@c.us"} {
		t.Run(in, func(t *testing.T) {
			_, err := whatsapp.ParseRecipient(in)
			require.Error(t, err)
			assert.True(t, scribeerr.HasCode(err, scribeerr.CodeSessionRecipientInvalid))
		})
	}
}

func TestChatID(t *testing.T) {
	assert.Equal(t, "56911111111@c.us", whatsapp.ChatID(types.NewJID("56911111111", types.DefaultUserServer)))
	assert.Equal(t, "120363000000000000@g.us", whatsapp.ChatID(types.NewJID("120363000000000000", types.GroupServer)))
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name   string
		evt    any
		kind   session.EventKind
		reason string
	}{
		{"connected", &events.Connected{}, session.EventReady, ""},
		{"pair success", &events.PairSuccess{}, session.EventAuthenticated, ""},
		{"stream replaced", &events.StreamReplaced{}, session.EventDisconnected, session.ReasonConflict},
		{"logged out", &events.LoggedOut{}, session.EventDisconnected, session.ReasonLogout},
		{"connect failure", &events.ConnectFailure{}, session.EventDisconnected, session.ReasonConnectFailure},
		{"socket dropped", &events.Disconnected{}, session.EventDisconnected, session.ReasonConnectionLost},
		{"client outdated", &events.ClientOutdated{}, session.EventAuthFailure, "client outdated"},
		{"keepalive timeout", &events.KeepAliveTimeout{ErrorCount: 2}, session.EventChangeState, ""},
		{"keepalive restored", &events.KeepAliveRestored{}, session.EventChangeState, ""},
		{"offline sync", &events.OfflineSyncCompleted{Count: 3}, session.EventLoadingScreen, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := whatsapp.Translate(tt.evt, now)
			require.True(t, ok)
			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, tt.reason, ev.Reason)
			assert.Equal(t, now, ev.At)
		})
	}
}

func TestTranslate_Details(t *testing.T) {
	ev, _ := whatsapp.Translate(&events.KeepAliveTimeout{ErrorCount: 2}, now)
	assert.Equal(t, "KEEPALIVE_TIMEOUT (errors=2)", ev.Detail)

	ev, _ = whatsapp.Translate(&events.OfflineSyncCompleted{Count: 3}, now)
	assert.Equal(t, 100, ev.Percent)
}

func TestTranslate_IgnoresOtherEvents(t *testing.T) {
	_, ok := whatsapp.Translate(&events.Receipt{}, now)
	assert.False(t, ok)

	_, ok = whatsapp.Translate("not an event", now)
	assert.False(t, ok)
}

func TestTranslateQR(t *testing.T) {
	ev, ok := whatsapp.TranslateQR("code", "2@abc", now)
	require.True(t, ok)
	assert.Equal(t, session.EventQR, ev.Kind)
	assert.Equal(t, "2@abc", ev.QRCode)

	ev, ok = whatsapp.TranslateQR("timeout", "", now)
	require.True(t, ok)
	assert.Equal(t, session.EventDisconnected, ev.Kind)
	assert.Equal(t, session.ReasonQRTimeout, ev.Reason)

	_, ok = whatsapp.TranslateQR("success", "", now)
	assert.False(t, ok)

	ev, ok = whatsapp.TranslateQR("err-unexpected-state", "", now)
	require.True(t, ok)
	assert.Equal(t, session.EventAuthFailure, ev.Kind)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"voice note", &waE2E.Message{AudioMessage: &waE2E.AudioMessage{PTT: proto.Bool(true)}}, whatsapp.KindPTT},
		{"audio file", &waE2E.Message{AudioMessage: &waE2E.AudioMessage{}}, whatsapp.KindAudio},
		{"image", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{}}, whatsapp.KindImage},
		{"video", &waE2E.Message{VideoMessage: &waE2E.VideoMessage{}}, whatsapp.KindVideo},
		{"document", &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{}}, whatsapp.KindDocument},
		{"sticker", &waE2E.Message{StickerMessage: &waE2E.StickerMessage{}}, whatsapp.KindSticker},
		{"text", &waE2E.Message{Conversation: proto.String("hi")}, whatsapp.KindChat},
		{"extended text", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("hi")}}, whatsapp.KindChat},
		{"empty", &waE2E.Message{}, whatsapp.KindUnknown},
		{"nil", nil, whatsapp.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, whatsapp.KindOf(tt.msg))
		})
	}
}

func TestBodyOf(t *testing.T) {
	assert.Equal(t, "!ping", whatsapp.BodyOf(&waE2E.Message{Conversation: proto.String("!ping")}))
	assert.Equal(t, "!help", whatsapp.BodyOf(&waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("!help")}}))
	assert.Equal(t, "look", whatsapp.BodyOf(&waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("look")}}))
	assert.Empty(t, whatsapp.BodyOf(&waE2E.Message{AudioMessage: &waE2E.AudioMessage{}}))
}

func TestMuted(t *testing.T) {
	assert.False(t, whatsapp.Muted(time.Time{}, now))
	assert.True(t, whatsapp.Muted(now.Add(time.Hour), now))
	assert.False(t, whatsapp.Muted(now.Add(-time.Hour), now))
	assert.True(t, whatsapp.Muted(time.Unix(0, 0), now))
}

func TestStoreDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/s.db?_foreign_keys=on", whatsapp.StoreDSN("/tmp/s.db"))
}

func TestResetStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.db")
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}

	require.NoError(t, whatsapp.ResetStore(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// missing files are fine
	require.NoError(t, whatsapp.ResetStore(path))
}

func TestPaired_MissingStore(t *testing.T) {
	paired, err := whatsapp.Paired(t.Context(), filepath.Join(t.TempDir(), "none.db"))
	require.NoError(t, err)
	assert.False(t, paired)
}

func TestPrintQR(t *testing.T) {
	var buf bytes.Buffer
	whatsapp.PrintQR(&buf, "2@pairing-code")
	assert.NotEmpty(t, buf.String())
}
