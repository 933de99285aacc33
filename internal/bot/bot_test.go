// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package bot_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/scribe-dev/scribe/internal/bot"
	"github.com/scribe-dev/scribe/internal/health"
	"github.com/scribe-dev/scribe/internal/session"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	events chan session.Event

	mu         sync.Mutex
	inits      int
	initErr    error
	stateCalls int
	state      session.State
	stateErr   error
	closed     int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan session.Event, 8), state: session.StateConnected}
}

func (f *fakeTransport) Events() <-chan session.Event { return f.events }

func (f *fakeTransport) Initialize(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	return f.initErr
}

func (f *fakeTransport) State(context.Context) (session.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	return f.state, f.stateErr
}

func (f *fakeTransport) SendText(context.Context, string, string) error { return nil }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeTransport) initCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits
}

func (f *fakeTransport) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateCalls
}

type fakeHandler struct {
	mu         sync.Mutex
	dispatched []session.Message
	waited     bool
}

func (h *fakeHandler) Dispatch(_ context.Context, msg session.Message) {
	h.mu.Lock()
	h.dispatched = append(h.dispatched, msg)
	h.mu.Unlock()
}

func (h *fakeHandler) Wait() {
	h.mu.Lock()
	h.waited = true
	h.mu.Unlock()
}

// stubMessage satisfies session.Message; the bot only forwards it.
type stubMessage struct{ session.Message }

type eventCounter struct {
	mu    sync.Mutex
	kinds []string
}

func (c *eventCounter) SessionEvent(kind string) {
	c.mu.Lock()
	c.kinds = append(c.kinds, kind)
	c.mu.Unlock()
}

type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (e *exitRecorder) exit(code int) {
	e.mu.Lock()
	e.codes = append(e.codes, code)
	e.mu.Unlock()
}

func (e *exitRecorder) get() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.codes...)
}

type fixture struct {
	bot       *bot.Bot
	sup       *health.Supervisor
	clock     *clock.Mock
	transport *fakeTransport
	handler   *fakeHandler
	exits     *exitRecorder
	events    *eventCounter
	qr        []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:     clock.NewMock(),
		transport: newFakeTransport(),
		handler:   &fakeHandler{},
		exits:     &exitRecorder{},
		events:    &eventCounter{},
	}

	sup, err := health.NewSupervisor(health.DefaultConfig(),
		bot.Probe(f.transport),
		bot.NewRecoverer(f.transport, f.exits.exit),
		health.WithClock(f.clock),
	)
	require.NoError(t, err)
	f.sup = sup

	b, err := bot.New(bot.Config{
		Transport:  f.transport,
		Supervisor: sup,
		Handler:    f.handler,
		ShowQR:     func(code string) { f.qr = append(f.qr, code) },
		Recorder:   f.events,
	})
	require.NoError(t, err)
	f.bot = b
	return f
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := bot.New(bot.Config{Supervisor: f.sup, Handler: f.handler})
	require.Error(t, err)
	assert.True(t, scribeerr.IsConfigFailure(err))

	_, err = bot.New(bot.Config{Transport: f.transport, Handler: f.handler})
	require.Error(t, err)

	_, err = bot.New(bot.Config{Transport: f.transport, Supervisor: f.sup})
	require.Error(t, err)
}

func TestHandleEvent_ReadyMarksSessionReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.sup.State().Ready())
	f.bot.HandleEvent(ctx, session.Event{Kind: session.EventReady})
	assert.True(t, f.sup.State().Ready())
	assert.Equal(t, []string{"ready"}, f.events.kinds)
}

func TestHandleEvent_MessageTouchesAndDispatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.Add(time.Hour)
	msg := stubMessage{}
	f.bot.HandleEvent(ctx, session.Event{Kind: session.EventMessage, Message: msg})

	assert.Equal(t, f.clock.Now(), f.sup.State().LastActivity())
	require.Len(t, f.handler.dispatched, 1)
	assert.Equal(t, msg, f.handler.dispatched[0])
}

func TestHandleEvent_MessageWithoutPayloadIgnored(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleEvent(context.Background(), session.Event{Kind: session.EventMessage})
	assert.Empty(t, f.handler.dispatched)
}

func TestHandleEvent_QRShown(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleEvent(context.Background(), session.Event{Kind: session.EventQR, QRCode: "2@abc"})
	assert.Equal(t, []string{"2@abc"}, f.qr)
}

func TestHandleEvent_DisconnectReinitializes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.HandleEvent(ctx, session.Event{Kind: session.EventReady})
	f.bot.HandleEvent(ctx, session.Event{Kind: session.EventDisconnected, Reason: session.ReasonConnectionLost})
	assert.False(t, f.sup.State().Ready())

	f.clock.Add(9 * time.Second)
	assert.Equal(t, 0, f.transport.initCount())

	f.clock.Add(time.Second)
	assert.Eventually(t, func() bool { return f.transport.initCount() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Empty(t, f.exits.get())
}

func TestHandleEvent_AuthFailureExits(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleEvent(context.Background(), session.Event{Kind: session.EventAuthFailure, Reason: "pair rejected"})
	assert.True(t, f.sup.State().Restarting())

	f.clock.Add(0)
	assert.Eventually(t, func() bool { return len(f.exits.get()) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{1}, f.exits.get())
	assert.Equal(t, 1, f.transport.closed)
}

func TestHandleEvent_InformationalEventsOnlyCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.HandleEvent(ctx, session.Event{Kind: session.EventAuthenticated})
	f.bot.HandleEvent(ctx, session.Event{Kind: session.EventLoadingScreen, Percent: 50})
	f.bot.HandleEvent(ctx, session.Event{Kind: session.EventChangeState, Detail: "KEEPALIVE_TIMEOUT"})

	assert.False(t, f.sup.State().Ready())
	assert.Equal(t, []string{"authenticated", "loading_screen", "change_state"}, f.events.kinds)
}

func TestRun_InitializeFailure(t *testing.T) {
	f := newFixture(t)
	f.transport.initErr = errors.New("dial failed")

	err := f.bot.Run(context.Background())
	require.Error(t, err)
	assert.True(t, scribeerr.HasCode(err, scribeerr.CodeSessionTransportFailure))
}

func TestRun_ProbesOnTickAndStops(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.bot.Run(ctx) }()

	f.transport.events <- session.Event{Kind: session.EventReady}
	assert.Eventually(t, func() bool { return f.sup.State().Ready() },
		time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		f.clock.Add(f.sup.Interval())
		return f.transport.probeCount() > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, f.handler.waited)
	assert.Equal(t, 1, f.transport.initCount())
}

func TestRun_FatalProbeRestarts(t *testing.T) {
	f := newFixture(t)
	f.transport.stateErr = errors.New("Session closed: no active client")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = f.bot.Run(ctx) }()
	f.transport.events <- session.Event{Kind: session.EventReady}
	assert.Eventually(t, func() bool { return f.sup.State().Ready() },
		time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		f.clock.Add(f.sup.Interval())
		return len(f.exits.get()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []int{1}, f.exits.get())
}

func TestProbe_AdaptsTransportState(t *testing.T) {
	tr := newFakeTransport()
	tr.state = session.StateOpening

	state, err := bot.Probe(tr)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OPENING", state)

	tr.stateErr = errors.New("keepalive timed out")
	_, err = bot.Probe(tr)(context.Background())
	require.Error(t, err)
}

func TestRecoverer_ReinitializeWrapsError(t *testing.T) {
	tr := newFakeTransport()
	tr.initErr = errors.New("no device")

	err := bot.NewRecoverer(tr, func(int) {}).Reinitialize(context.Background())
	require.Error(t, err)
	assert.True(t, scribeerr.HasCode(err, scribeerr.CodeSessionTransportFailure))
}
