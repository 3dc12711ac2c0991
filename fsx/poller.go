package fsx

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/fsxlabs/fsx-sdk-go/fsx/rest"
)

// PresencePoller periodically pulls the authoritative online-user set and
// renders it. A failed poll never stops the schedule; it only stretches the
// delay until the next one.
type PresencePoller struct {
	rest        *rest.Client
	dispatcher  *Dispatcher
	logger      Logger
	interval    time.Duration
	maxBackoff  time.Duration
	currentUser string
	selection   SelectionList

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	inFlight bool
	seq      uint64
	applied  uint64
	snapshot PresenceSnapshot
}

// NewPresencePoller constructs a poller for currentUser. The dispatcher
// receives a PresenceView after every applied refresh.
func NewPresencePoller(rc *rest.Client, d *Dispatcher, cfg Config, currentUser string) *PresencePoller {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	maxBackoff := cfg.PollMaxBackoff
	if maxBackoff < interval {
		maxBackoff = interval
	}
	return &PresencePoller{
		rest:        rc,
		dispatcher:  d,
		logger:      noopLogger{},
		interval:    interval,
		maxBackoff:  maxBackoff,
		currentUser: currentUser,
	}
}

// SetLogger overrides logger (optional).
func (p *PresencePoller) SetLogger(l Logger) {
	if l != nil {
		p.logger = l
	}
}

// Start refreshes once immediately, then keeps refreshing until ctx is
// cancelled or Stop is called.
func (p *PresencePoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("poller already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.mu.Unlock()

	go p.loop(runCtx)
	return nil
}

// Stop halts the schedule. A refresh already in flight finishes on its own
// context and its result is still applied under the sequence guard.
func (p *PresencePoller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.running = false
	p.mu.Unlock()
}

func (p *PresencePoller) loop(ctx context.Context) {
	backoff := p.newBackoff()
	for {
		err := p.Refresh(ctx)
		delay := p.interval
		switch {
		case err == nil:
			backoff = p.newBackoff()
		case errors.Is(err, context.Canceled):
			return
		case CodeOf(err) == ErrorBusy:
			// A manual refresh holds the gate; keep the normal cadence.
		default:
			next, stop := backoff.Next()
			if stop {
				next = p.maxBackoff
			}
			delay = next
			p.logger.Warn("presence refresh failed", map[string]any{"error": err.Error(), "retry_in": delay.String()})
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (p *PresencePoller) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(p.maxBackoff, retry.NewFibonacci(p.interval))
}

// Refresh performs one fetch and replaces the snapshot in full. Refreshes
// are serialized: if one is already in flight the call is dropped with an
// ErrorBusy, and a monotonic sequence number keeps a late completion from
// overwriting a newer snapshot.
func (p *PresencePoller) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return NewError(ErrorBusy, "refresh already in flight")
	}
	p.inFlight = true
	p.seq++
	ticket := p.seq
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	snap, err := p.fetch(ctx)
	p.apply(ticket, snap)
	return err
}

func (p *PresencePoller) fetch(ctx context.Context) (PresenceSnapshot, error) {
	resp, err := p.rest.Online(ctx)
	now := time.Now()
	if err != nil {
		var ue *rest.UnavailableError
		if errors.As(err, &ue) {
			return PresenceSnapshot{FetchedAt: now, IsError: true, ErrorText: ue.Detail},
				WrapError(ErrorServiceUnavailable, ue.Detail, err)
		}
		if errors.Is(err, context.Canceled) {
			return PresenceSnapshot{FetchedAt: now, IsError: true, ErrorText: err.Error()}, err
		}
		return PresenceSnapshot{FetchedAt: now, IsError: true, ErrorText: err.Error()},
			WrapError(ErrorTransport, err.Error(), err)
	}
	return PresenceSnapshot{
		Users:     append([]string(nil), resp.Users...),
		Count:     resp.Count,
		FetchedAt: now,
	}, nil
}

func (p *PresencePoller) apply(ticket uint64, snap PresenceSnapshot) {
	p.mu.Lock()
	if ticket <= p.applied {
		p.mu.Unlock()
		return
	}
	p.applied = ticket
	p.snapshot = snap
	p.mu.Unlock()

	p.dispatcher.firePresence(p.View())
}

// View builds the render model from the last applied snapshot.
func (p *PresencePoller) View() PresenceView {
	p.mu.Lock()
	snap := p.snapshot
	p.mu.Unlock()
	return BuildPresenceView(snap, p.currentUser, p.selection.Active())
}

// Snapshot returns the last applied snapshot.
func (p *PresencePoller) Snapshot() PresenceSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// SelectUser marks exactly one list entry as active and re-renders from the
// last snapshot. No network effect.
func (p *PresencePoller) SelectUser(username string) {
	p.selection.Select(username)
	p.mu.Lock()
	rendered := p.applied > 0
	p.mu.Unlock()
	if rendered {
		p.dispatcher.firePresence(p.View())
	}
}

// ClearSelection drops the active entry.
func (p *PresencePoller) ClearSelection() {
	p.selection.Clear()
}
