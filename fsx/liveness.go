package fsx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/fsxlabs/fsx-sdk-go/fsx/internal"
)

// LivenessMonitor observes the gateway heartbeat over one long-lived push
// channel, independent of presence polling. It drives a single status line
// and a four-state machine: Idle -> Connected -> {Errored, Closed}, with
// Errored still followed by Closed once the transport gives up.
type LivenessMonitor struct {
	url              string
	handshakeTimeout time.Duration
	readTimeout      time.Duration
	reconnect        bool
	reconnectBase    time.Duration
	maxBackoff       time.Duration
	dispatcher       *Dispatcher
	logger           Logger

	mu     sync.Mutex
	state  ChannelState
	conn   *internal.Conn
	cancel context.CancelFunc
	closed bool
}

// NewLivenessMonitor constructs a monitor from cfg. The dispatcher receives
// status lines, state changes and payload errors.
func NewLivenessMonitor(d *Dispatcher, cfg Config) *LivenessMonitor {
	maxBackoff := cfg.PollMaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	return &LivenessMonitor{
		url:              cfg.LivenessURL,
		handshakeTimeout: cfg.HandshakeTimeout,
		readTimeout:      cfg.ReadTimeout,
		reconnect:        cfg.LivenessReconnect,
		reconnectBase:    time.Second,
		maxBackoff:       maxBackoff,
		dispatcher:       d,
		logger:           noopLogger{},
	}
}

// SetLogger overrides logger (optional).
func (m *LivenessMonitor) SetLogger(l Logger) {
	if l != nil {
		m.logger = l
	}
}

// State returns the current channel state.
func (m *LivenessMonitor) State() ChannelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect dials the push channel and starts the read loop.
func (m *LivenessMonitor) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return errors.New("already connected")
	}
	if m.url == "" {
		m.mu.Unlock()
		return errors.New("empty liveness URL")
	}
	m.closed = false
	m.mu.Unlock()

	if err := m.dial(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.setState(StateConnected, nil)
	m.dispatcher.fireStatusLine(statusConnected)

	go m.run(runCtx)
	return nil
}

// Close shuts the channel down for good; reconnect does not apply.
func (m *LivenessMonitor) Close() error {
	m.mu.Lock()
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	conn := m.conn
	m.mu.Unlock()
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

func (m *LivenessMonitor) dial(ctx context.Context) error {
	dialCtx := ctx
	if m.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.handshakeTimeout)
		defer cancel()
	}
	ws, _, err := websocket.Dial(dialCtx, m.url, nil)
	if err != nil {
		return WrapError(ErrorNotConnected, "liveness dial failed", err)
	}
	m.mu.Lock()
	m.conn = internal.NewConn(ws, m.readTimeout)
	m.mu.Unlock()
	return nil
}

func (m *LivenessMonitor) run(ctx context.Context) {
	for {
		err := m.readLoop(ctx)
		if !isExpectedDisconnect(ctx, err) {
			m.setState(StateErrored, err)
			m.dispatcher.fireStatusLine(statusError)
			m.dispatcher.fireError(WrapError(ErrorTransport, "liveness read failed", err))
			m.logger.Warn("liveness read failed", map[string]any{"error": err.Error()})
		}

		m.mu.Lock()
		if m.conn != nil {
			_ = m.conn.Close(websocket.StatusNormalClosure, "channel down")
			m.conn = nil
		}
		m.mu.Unlock()
		m.setState(StateClosed, err)
		m.dispatcher.fireStatusLine(statusClosed)

		if !m.redial(ctx) {
			return
		}
		m.setState(StateConnected, nil)
		m.dispatcher.fireStatusLine(statusConnected)
	}
}

func (m *LivenessMonitor) readLoop(ctx context.Context) error {
	for {
		m.mu.Lock()
		conn := m.conn
		m.mu.Unlock()
		if conn == nil {
			return errors.New("no connection")
		}

		data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var hb Heartbeat
		if err := json.Unmarshal(data, &hb); err != nil {
			// Malformed payload: report it, keep the channel and the last
			// rendered status line.
			m.dispatcher.fireError(WrapError(ErrorSerialization, "malformed heartbeat payload", err))
			m.logger.Warn("malformed heartbeat payload", map[string]any{"error": err.Error()})
			continue
		}
		m.dispatcher.fireStatusLine(hb.StatusLine())
	}
}

// redial waits out a backoff and re-establishes the channel. Returns false
// when reconnect is disabled, the monitor was closed, or ctx ended.
func (m *LivenessMonitor) redial(ctx context.Context) bool {
	m.mu.Lock()
	enabled := m.reconnect && !m.closed
	m.mu.Unlock()
	if !enabled || ctx.Err() != nil {
		return false
	}

	backoff := retry.WithCappedDuration(m.maxBackoff, retry.NewFibonacci(m.reconnectBase))
	for {
		delay, stop := backoff.Next()
		if stop {
			delay = m.maxBackoff
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false
		}

		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return false
		}

		if err := m.dial(ctx); err != nil {
			m.logger.Warn("liveness redial failed", map[string]any{"error": err.Error()})
			continue
		}
		return true
	}
}

func (m *LivenessMonitor) setState(next ChannelState, err error) {
	m.mu.Lock()
	prev := m.state
	if prev == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	m.mu.Unlock()
	m.dispatcher.fireStateChange(StateEvent{OldState: prev, NewState: next, Error: err})
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
