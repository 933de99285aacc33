// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package media_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/scribe-dev/scribe/internal/media"
	"github.com/scribe-dev/scribe/internal/session"
	"github.com/scribe-dev/scribe/internal/transcription"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	from     string
	kind     string
	body     string
	media    *session.Media
	dlErr    error
	chat     session.ChatInfo
	chatErr  error
	contact  session.ContactInfo
	panicOn  string
	replyErr error

	mu        sync.Mutex
	downloads int
	replies   []string
}

func (m *fakeMessage) ID() string           { return "MSG1" }
func (m *fakeMessage) From() string         { return m.from }
func (m *fakeMessage) Kind() string         { return m.kind }
func (m *fakeMessage) Body() string         { return m.body }
func (m *fakeMessage) HasMedia() bool       { return m.kind != "chat" }
func (m *fakeMessage) FromMe() bool         { return false }
func (m *fakeMessage) Timestamp() time.Time { return time.Time{} }

func (m *fakeMessage) Chat(context.Context) (session.ChatInfo, error) {
	return m.chat, m.chatErr
}

func (m *fakeMessage) Contact(context.Context) (session.ContactInfo, error) {
	if m.panicOn == "contact" {
		panic("contact store exploded")
	}
	return m.contact, nil
}

func (m *fakeMessage) DownloadMedia(context.Context) (*session.Media, error) {
	m.mu.Lock()
	m.downloads++
	m.mu.Unlock()
	return m.media, m.dlErr
}

func (m *fakeMessage) Reply(_ context.Context, text string) error {
	m.mu.Lock()
	m.replies = append(m.replies, text)
	m.mu.Unlock()
	return m.replyErr
}

func (m *fakeMessage) Replies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.replies...)
}

type fakeTranscriber struct {
	text  string
	err   error
	block bool
	calls int
	got   transcription.Request
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(ctx context.Context, req transcription.Request) (string, error) {
	f.calls++
	f.got = req
	if f.block {
		<-ctx.Done()
		return "", scribeerr.Wrap(ctx.Err(), scribeerr.CodeTranscriptionRequestTimeout, "timed out")
	}
	return f.text, f.err
}

type relayed struct{ name, text string }

type fakeRelay struct {
	sent []relayed
	err  error
}

func (f *fakeRelay) Send(_ context.Context, name, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, relayed{name, text})
	return nil
}

type fakeState struct{ ready bool }

func (s fakeState) Ready() bool             { return s.ready }
func (s fakeState) LastActivity() time.Time { return time.Time{} }

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []media.Outcome
}

func (o *outcomeRecorder) MessageHandled(outcome media.Outcome, _ time.Duration) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, outcome)
	o.mu.Unlock()
}

var defaultConfig = media.Config{Timeout: 30 * time.Second, SkipMutedGroups: true, Commands: true, MaxInFlight: 2}

func voiceNote() *fakeMessage {
	return &fakeMessage{
		from:    "56911111111@c.us",
		kind:    "ptt",
		media:   &session.Media{MimeType: "audio/ogg; codecs=opus", Data: []byte("opus")},
		contact: session.ContactInfo{Name: "Ana", PushName: "ana_p"},
	}
}

func newHandler(tr *fakeTranscriber, rl *fakeRelay, ready bool, opts ...media.HandlerOption) *media.Handler {
	return media.NewHandler(defaultConfig, media.NewProcessor(tr, rl), fakeState{ready: ready}, opts...)
}

func TestHandle_VoiceNoteRelayed(t *testing.T) {
	tr := &fakeTranscriber{text: "hola como estas"}
	rl := &fakeRelay{}
	msg := voiceNote()

	outcome := newHandler(tr, rl, true).Handle(context.Background(), msg)

	assert.Equal(t, media.OutcomeRelayed, outcome)
	require.Len(t, rl.sent, 1)
	assert.Equal(t, relayed{"Ana", "hola como estas"}, rl.sent[0])
	assert.Empty(t, msg.Replies(), "transcript goes to the recipient, not the sender")
	assert.Equal(t, "voice.ogg", tr.got.Filename)
	assert.Equal(t, "audio/ogg; codecs=opus", tr.got.MimeType)
}

func TestHandle_ContactNameFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		contact session.ContactInfo
		want    string
	}{
		{"push name", session.ContactInfo{PushName: "ana_p"}, "ana_p"},
		{"chat id", session.ContactInfo{}, "56911111111@c.us"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := &fakeRelay{}
			msg := voiceNote()
			msg.contact = tt.contact
			newHandler(&fakeTranscriber{text: "hola"}, rl, true).Handle(context.Background(), msg)
			require.Len(t, rl.sent, 1)
			assert.Equal(t, tt.want, rl.sent[0].name)
		})
	}
}

func TestHandle_EmptyTranscriptReplies(t *testing.T) {
	rl := &fakeRelay{}
	msg := voiceNote()

	outcome := newHandler(&fakeTranscriber{text: ""}, rl, true).Handle(context.Background(), msg)

	assert.Equal(t, media.OutcomeEmpty, outcome)
	assert.Empty(t, rl.sent)
	assert.Equal(t, []string{media.ReplyEmptyTranscript}, msg.Replies())
}

func TestHandle_TranscriptionFailureReplies(t *testing.T) {
	rl := &fakeRelay{}
	msg := voiceNote()
	tr := &fakeTranscriber{err: scribeerr.New(scribeerr.CodeTranscriptionUpstreamFailure, "502")}

	outcome := newHandler(tr, rl, true).Handle(context.Background(), msg)

	assert.Equal(t, media.OutcomeFailed, outcome)
	assert.Empty(t, rl.sent)
	assert.Equal(t, []string{media.ReplyProcessingError}, msg.Replies())
}

func TestHandle_ReplyFailureIsSwallowed(t *testing.T) {
	msg := voiceNote()
	msg.replyErr = scribeerr.New(scribeerr.CodeRelaySendFailure, "socket closed")
	tr := &fakeTranscriber{err: scribeerr.New(scribeerr.CodeTranscriptionUpstreamFailure, "502")}

	assert.Equal(t, media.OutcomeFailed, newHandler(tr, &fakeRelay{}, true).Handle(context.Background(), msg))
}

func TestHandle_NonVoiceMediaIsNoOp(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		mime      string
		downloads int
	}{
		{"image", "image", "image/jpeg", 0},
		{"sticker", "sticker", "image/webp", 0},
		{"document", "document", "application/pdf", 0},
		{"unsupported audio", "audio", "audio/aac", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTranscriber{text: "x"}
			rl := &fakeRelay{}
			msg := voiceNote()
			msg.kind = tt.kind
			msg.media = &session.Media{MimeType: tt.mime, Data: []byte("x")}

			outcome := newHandler(tr, rl, true).Handle(context.Background(), msg)

			assert.Equal(t, media.OutcomeSkipped, outcome)
			assert.Equal(t, tt.downloads, msg.downloads)
			assert.Equal(t, 0, tr.calls)
			assert.Empty(t, rl.sent)
			assert.Empty(t, msg.Replies())
		})
	}
}

func TestHandle_MissingMediaSkipped(t *testing.T) {
	msg := voiceNote()
	msg.media = nil
	tr := &fakeTranscriber{text: "x"}

	assert.Equal(t, media.OutcomeSkipped, newHandler(tr, &fakeRelay{}, true).Handle(context.Background(), msg))
	assert.Equal(t, 0, tr.calls)
	assert.Empty(t, msg.Replies())
}

func TestHandle_DownloadFailureLoggedOnly(t *testing.T) {
	msg := voiceNote()
	msg.dlErr = scribeerr.New(scribeerr.CodeMediaDownloadFailure, "cdn 500")

	outcome := newHandler(&fakeTranscriber{}, &fakeRelay{}, true).Handle(context.Background(), msg)

	assert.Equal(t, media.OutcomeMediaError, outcome)
	assert.Empty(t, msg.Replies())
}

func TestHandle_FailuresClassifiedByOrigin(t *testing.T) {
	tests := []struct {
		name    string
		dlErr   error
		trErr   error
		relay   error
		want    media.Outcome
		replies []string
	}{
		{"uncoded download", errors.New("unexpected EOF"), nil, nil, media.OutcomeMediaError, nil},
		{"download hits a closed session", scribeerr.New(scribeerr.CodeRelaySessionNotReady, "not connected"), nil, nil, media.OutcomeMediaError, nil},
		{"uncoded relay", nil, nil, errors.New("socket closed"), media.OutcomeRelayFailed, nil},
		{"uncoded transcription", nil, errors.New("boom"), nil, media.OutcomeFailed, []string{media.ReplyProcessingError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := voiceNote()
			msg.dlErr = tt.dlErr
			tr := &fakeTranscriber{text: "hola", err: tt.trErr}
			rl := &fakeRelay{err: tt.relay}

			outcome := newHandler(tr, rl, true).Handle(context.Background(), msg)

			assert.Equal(t, tt.want, outcome)
			assert.Equal(t, tt.replies, msg.Replies())
		})
	}
}

func TestHandle_ChatLookupFailureSkipped(t *testing.T) {
	tr := &fakeTranscriber{text: "hola"}
	msg := voiceNote()
	msg.from = "120363000000000000@g.us"
	msg.chatErr = errors.New("chat store unavailable")

	outcome := newHandler(tr, &fakeRelay{}, true).Handle(context.Background(), msg)

	assert.Equal(t, media.OutcomeSkipped, outcome)
	assert.Equal(t, 0, msg.downloads)
	assert.Equal(t, 0, tr.calls)
}

func TestHandler_DeadlineErr(t *testing.T) {
	h := newHandler(&fakeTranscriber{}, &fakeRelay{}, true)

	err := h.DeadlineErr(context.DeadlineExceeded)
	assert.True(t, scribeerr.HasCode(err, scribeerr.CodeMediaProcessTimeout))
	assert.True(t, scribeerr.IsTimeout(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = h.DeadlineErr(scribeerr.Wrap(context.DeadlineExceeded, scribeerr.CodeTranscriptionRequestTimeout, "timed out"))
	assert.True(t, scribeerr.IsMediaFailure(err))
	assert.Equal(t, "30s", scribeerr.FieldsOf(err)["timeout"])
	assert.Equal(t, string(scribeerr.CodeTranscriptionRequestTimeout), scribeerr.FieldsOf(err)["cause_code"])
}

func TestHandle_RelayFailureLoggedOnly(t *testing.T) {
	msg := voiceNote()
	rl := &fakeRelay{err: scribeerr.New(scribeerr.CodeRelaySendFailure, "nope")}

	outcome := newHandler(&fakeTranscriber{text: "hola"}, rl, true).Handle(context.Background(), msg)

	assert.Equal(t, media.OutcomeRelayFailed, outcome)
	assert.Empty(t, msg.Replies())
}

func TestHandle_MutedGroupSkipped(t *testing.T) {
	tr := &fakeTranscriber{text: "hola"}
	msg := voiceNote()
	msg.from = "120363000000000000@g.us"
	msg.chat = session.ChatInfo{IsGroup: true, IsMuted: true}

	outcome := newHandler(tr, &fakeRelay{}, true).Handle(context.Background(), msg)

	assert.Equal(t, media.OutcomeMuted, outcome)
	assert.Equal(t, 0, msg.downloads)
	assert.Equal(t, 0, tr.calls)
}

func TestHandle_UnmutedGroupProcessed(t *testing.T) {
	rl := &fakeRelay{}
	msg := voiceNote()
	msg.from = "120363000000000000@g.us"
	msg.chat = session.ChatInfo{IsGroup: true}

	assert.Equal(t, media.OutcomeRelayed, newHandler(&fakeTranscriber{text: "hola"}, rl, true).Handle(context.Background(), msg))
}

func TestHandle_Commands(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"!ping", media.ReplyPong},
		{" !help ", media.ReplyHelp},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			msg := &fakeMessage{from: "56911111111@c.us", kind: "chat", body: tt.body}
			outcome := newHandler(&fakeTranscriber{}, &fakeRelay{}, true).Handle(context.Background(), msg)
			assert.Equal(t, media.OutcomeCommand, outcome)
			assert.Equal(t, []string{tt.want}, msg.Replies())
		})
	}
}

func TestHandle_CommandsDisabled(t *testing.T) {
	cfg := defaultConfig
	cfg.Commands = false
	h := media.NewHandler(cfg, media.NewProcessor(&fakeTranscriber{}, &fakeRelay{}), fakeState{ready: true})

	msg := &fakeMessage{from: "56911111111@c.us", kind: "chat", body: "!ping"}
	assert.Equal(t, media.OutcomeSkipped, h.Handle(context.Background(), msg))
	assert.Empty(t, msg.Replies())
}

func TestHandle_PlainTextIgnored(t *testing.T) {
	msg := &fakeMessage{from: "56911111111@c.us", kind: "chat", body: "hola"}
	assert.Equal(t, media.OutcomeSkipped, newHandler(&fakeTranscriber{}, &fakeRelay{}, true).Handle(context.Background(), msg))
	assert.Empty(t, msg.Replies())
}

func TestHandle_NotReadySuppressesReplies(t *testing.T) {
	msg := &fakeMessage{from: "56911111111@c.us", kind: "chat", body: "!ping"}
	newHandler(&fakeTranscriber{}, &fakeRelay{}, false).Handle(context.Background(), msg)
	assert.Empty(t, msg.Replies())
}

func TestHandle_TimeoutAbortsOnlyThatMessage(t *testing.T) {
	cfg := defaultConfig
	cfg.Timeout = 20 * time.Millisecond
	tr := &fakeTranscriber{block: true}
	msg := voiceNote()
	h := media.NewHandler(cfg, media.NewProcessor(tr, &fakeRelay{}), fakeState{ready: true})

	outcome := h.Handle(context.Background(), msg)

	assert.Equal(t, media.OutcomeTimeout, outcome)
	assert.Empty(t, msg.Replies())
}

func TestHandle_PanicRecovered(t *testing.T) {
	obs := &outcomeRecorder{}
	msg := voiceNote()
	msg.panicOn = "contact"

	outcome := newHandler(&fakeTranscriber{text: "hola"}, &fakeRelay{}, true, media.WithObserver(obs)).
		Handle(context.Background(), msg)

	assert.Equal(t, media.OutcomePanic, outcome)
	assert.Equal(t, []media.Outcome{media.OutcomePanic}, obs.outcomes)
}

func TestDispatch_RunsConcurrentlyAndWaits(t *testing.T) {
	obs := &outcomeRecorder{}
	h := media.NewHandler(defaultConfig, media.NewProcessor(&fakeTranscriber{}, &fakeRelay{}), fakeState{ready: true},
		media.WithObserver(obs))

	for range 5 {
		h.Dispatch(context.Background(), &fakeMessage{from: "1@c.us", kind: "chat", body: "!ping"})
	}
	h.Wait()

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Len(t, obs.outcomes, 5)
}
