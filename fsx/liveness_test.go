package fsx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// livenessRecorder collects dispatcher output thread-safely.
type livenessRecorder struct {
	mu     sync.Mutex
	lines  []string
	states []StateEvent
	errs   []error
}

func (r *livenessRecorder) bind(d *Dispatcher) {
	d.SetOnStatusLine(func(line string) {
		r.mu.Lock()
		r.lines = append(r.lines, line)
		r.mu.Unlock()
	})
	d.SetOnStateChange(func(ev StateEvent) {
		r.mu.Lock()
		r.states = append(r.states, ev)
		r.mu.Unlock()
	})
	d.SetOnError(func(err error) {
		r.mu.Lock()
		r.errs = append(r.errs, err)
		r.mu.Unlock()
	})
}

func (r *livenessRecorder) lastLine() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return ""
	}
	return r.lines[len(r.lines)-1]
}

func (r *livenessRecorder) snapshotLines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func (r *livenessRecorder) snapshotStates() []StateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StateEvent(nil), r.states...)
}

func newLivenessServer(t *testing.T, handle func(ctx context.Context, c *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		handle(r.Context(), c)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newMonitor(t *testing.T, url string) (*LivenessMonitor, *livenessRecorder) {
	t.Helper()
	d := &Dispatcher{}
	rec := &livenessRecorder{}
	rec.bind(d)
	cfg := DefaultConfig()
	cfg.LivenessURL = url
	m := NewLivenessMonitor(d, cfg)
	t.Cleanup(func() { _ = m.Close() })
	return m, rec
}

func TestLivenessHeartbeatStatusLine(t *testing.T) {
	url := newLivenessServer(t, func(ctx context.Context, c *websocket.Conn) {
		_ = wsjson.Write(ctx, c, Heartbeat{TS: 3.14159, Status: "ok"})
		_ = c.Close(websocket.StatusNormalClosure, "done")
	})
	m, rec := newMonitor(t, url)

	require.Equal(t, StateIdle, m.State())
	require.NoError(t, m.Connect(context.Background()))

	require.Eventually(t, func() bool {
		return rec.lastLine() == "closed"
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"connected", "alive | ts=3.14 | ok", "closed"}, rec.snapshotLines())
	assert.Equal(t, StateClosed, m.State())
	// Normal closure never passes through Errored.
	for _, ev := range rec.snapshotStates() {
		assert.NotEqual(t, StateErrored, ev.NewState)
	}
}

func TestLivenessAbnormalCloseGoesThroughErrored(t *testing.T) {
	url := newLivenessServer(t, func(ctx context.Context, c *websocket.Conn) {
		_ = c.Close(websocket.StatusInternalError, "boom")
	})
	m, rec := newMonitor(t, url)

	require.NoError(t, m.Connect(context.Background()))
	require.Eventually(t, func() bool {
		return rec.lastLine() == "closed"
	}, 2*time.Second, 5*time.Millisecond)

	lines := rec.snapshotLines()
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "error", lines[len(lines)-2])
	assert.Equal(t, "closed", lines[len(lines)-1])

	var sawErrored bool
	for _, ev := range rec.snapshotStates() {
		if ev.OldState == StateConnected && ev.NewState == StateErrored {
			sawErrored = true
		}
	}
	assert.True(t, sawErrored, "unexpected close must pass through Errored before Closed")
}

func TestLivenessMalformedPayloadKeepsChannel(t *testing.T) {
	url := newLivenessServer(t, func(ctx context.Context, c *websocket.Conn) {
		_ = c.Write(ctx, websocket.MessageText, []byte("{nope"))
		_ = wsjson.Write(ctx, c, Heartbeat{TS: 1.5, Status: "ok"})
		// Hold the channel open until the client goes away.
		<-ctx.Done()
	})
	m, rec := newMonitor(t, url)

	require.NoError(t, m.Connect(context.Background()))
	require.Eventually(t, func() bool {
		return rec.lastLine() == "alive | ts=1.50 | ok"
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, StateConnected, m.State(), "a malformed payload must not tear the channel down")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.errs, 1)
	assert.Equal(t, ErrorSerialization, CodeOf(rec.errs[0]))
	// The garbage frame rendered nothing: connected straight to the heartbeat.
	assert.Equal(t, []string{"connected", "alive | ts=1.50 | ok"}, rec.lines)
}

func TestLivenessReconnectWhenEnabled(t *testing.T) {
	var attempts int32
	url := newLivenessServer(t, func(ctx context.Context, c *websocket.Conn) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			_ = c.Close(websocket.StatusInternalError, "flake")
			return
		}
		_ = wsjson.Write(ctx, c, Heartbeat{TS: 2, Status: "back"})
		<-ctx.Done()
	})

	d := &Dispatcher{}
	rec := &livenessRecorder{}
	rec.bind(d)
	cfg := DefaultConfig()
	cfg.LivenessURL = url
	cfg.LivenessReconnect = true
	m := NewLivenessMonitor(d, cfg)
	m.reconnectBase = 5 * time.Millisecond
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Connect(context.Background()))
	require.Eventually(t, func() bool {
		return rec.lastLine() == "alive | ts=2.00 | back"
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, StateConnected, m.State())
	assert.GreaterOrEqual(t, atomic.LoadInt32(&attempts), int32(2))
}

func TestLivenessClosedIsTerminalByDefault(t *testing.T) {
	url := newLivenessServer(t, func(ctx context.Context, c *websocket.Conn) {
		_ = c.Close(websocket.StatusNormalClosure, "bye")
	})
	m, _ := newMonitor(t, url)

	require.NoError(t, m.Connect(context.Background()))
	require.Eventually(t, func() bool {
		return m.State() == StateClosed
	}, 2*time.Second, 5*time.Millisecond)

	// No reconnect configured: the state stays Closed.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateClosed, m.State())
}

func TestChannelStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "error", StateErrored.String())
	assert.Equal(t, "closed", StateClosed.String())
}
