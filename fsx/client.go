// Package fsx is the client SDK for the fsx messenger gateway: session
// authentication, durable session persistence, presence polling, and a
// liveness push channel. The SDK renders nothing itself; every component
// reports through view callbacks registered on the Client.
package fsx

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsxlabs/fsx-sdk-go/fsx/rest"
	"github.com/fsxlabs/fsx-sdk-go/fsx/session"
)

// Client glues the auth flow, session store, presence poller and liveness
// monitor together. The auth flow runs first; once a session exists,
// StartPresence runs the poller and the monitor concurrently and
// independently until logout clears the session and halts both.
type Client struct {
	cfg        Config
	logger     Logger
	dispatcher Dispatcher
	rest       *rest.Client
	store      session.Store
	auth       *AuthFlow

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	poller   *PresencePoller
	liveness *LivenessMonitor
	ownStore bool
}

// NewClient opens the session store at cfg.StorePath and constructs the
// client. The caller must Close it to release the store.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	store, err := session.Open(ctx, cfg.StorePath)
	if err != nil {
		return nil, err
	}
	c := NewClientWithStore(cfg, store)
	c.ownStore = true
	return c, nil
}

// NewClientWithStore constructs a client on top of an existing store.
func NewClientWithStore(cfg Config, store session.Store) *Client {
	c := &Client{
		cfg:    cfg,
		logger: noopLogger{},
		store:  store,
		rest:   rest.NewClient(strings.TrimRight(cfg.GatewayURL, "/") + "/api"),
	}
	c.auth = NewAuthFlow(c.rest, store, &c.dispatcher, cfg)
	return c
}

// SetLogger overrides logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
	c.auth.SetLogger(l)
}

// Auth exposes the authentication flow.
func (c *Client) Auth() *AuthFlow { return c.auth }

// REST exposes the underlying gateway client.
func (c *Client) REST() *rest.Client { return c.rest }

// Callback registration, delegated to the dispatcher.

func (c *Client) OnBusy(fn func(Form, bool))        { c.dispatcher.SetOnBusy(fn) }
func (c *Client) OnFormError(fn func(Form, string)) { c.dispatcher.SetOnFormError(fn) }
func (c *Client) OnNotice(fn func(Notice))          { c.dispatcher.SetOnNotice(fn) }
func (c *Client) OnSwitchView(fn func(View))        { c.dispatcher.SetOnSwitchView(fn) }
func (c *Client) OnCloseForgotModal(fn func())      { c.dispatcher.SetOnCloseForgotModal(fn) }
func (c *Client) OnNavigate(fn func(string))        { c.dispatcher.SetOnNavigate(fn) }
func (c *Client) OnPresence(fn func(PresenceView))  { c.dispatcher.SetOnPresence(fn) }
func (c *Client) OnStatusLine(fn func(string))      { c.dispatcher.SetOnStatusLine(fn) }
func (c *Client) OnStateChange(fn func(StateEvent)) { c.dispatcher.SetOnStateChange(fn) }
func (c *Client) OnError(fn func(error))            { c.dispatcher.SetOnError(fn) }

// RequireSession loads the stored session. When none exists, or the stored
// token is past its known expiry, the view is sent back to the login route
// and ErrorNoSession is returned. Session existence is the sole gate for
// the messenger view.
func (c *Client) RequireSession(ctx context.Context) (*session.Session, error) {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return nil, WrapError(ErrorStore, "session load failed", err)
	}
	if sess == nil {
		c.dispatcher.fireNavigate(RouteLogin)
		return nil, NewError(ErrorNoSession, "no session")
	}
	if sess.Expired(time.Now()) {
		_ = c.store.Clear(ctx)
		c.dispatcher.fireNavigate(RouteLogin)
		return nil, NewError(ErrorNoSession, "session expired")
	}
	return sess, nil
}

// StartPresence verifies the session and starts the presence poller and,
// when a liveness URL is configured, the push-channel monitor. The two run
// on independent timelines and share no state beyond the dispatcher.
func (c *Client) StartPresence(ctx context.Context) error {
	sess, err := c.RequireSession(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return NewError(ErrorBusy, "presence already running")
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c.started = true
	c.cancel = cancel

	c.poller = NewPresencePoller(c.rest, &c.dispatcher, c.cfg, sess.Username)
	c.poller.SetLogger(c.logger)
	c.liveness = NewLivenessMonitor(&c.dispatcher, c.cfg)
	c.liveness.SetLogger(c.logger)
	poller, liveness := c.poller, c.liveness
	c.mu.Unlock()

	if err := poller.Start(runCtx); err != nil {
		return err
	}

	if c.cfg.LivenessURL != "" {
		if err := liveness.Connect(runCtx); err != nil {
			// The poller keeps its own timeline; a dead push channel only
			// degrades the status line.
			c.dispatcher.fireError(err)
			c.logger.Warn("liveness connect failed", map[string]any{"error": err.Error()})
		}
	}
	return nil
}

// StopPresence halts the poller and closes the push channel.
func (c *Client) StopPresence() {
	c.mu.Lock()
	cancel, poller, liveness := c.cancel, c.poller, c.liveness
	c.started = false
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if poller != nil {
		poller.Stop()
	}
	if liveness != nil {
		_ = liveness.Close()
	}
}

// RefreshPresence triggers one out-of-schedule poll.
func (c *Client) RefreshPresence(ctx context.Context) error {
	c.mu.Lock()
	poller := c.poller
	c.mu.Unlock()
	if poller == nil {
		return NewError(ErrorNotConnected, "presence not running")
	}
	return poller.Refresh(ctx)
}

// SelectUser marks one presence entry active.
func (c *Client) SelectUser(username string) {
	c.mu.Lock()
	poller := c.poller
	c.mu.Unlock()
	if poller != nil {
		poller.SelectUser(username)
	}
}

// Logout tells the gateway to drop the connection (best effort, errors
// ignored), halts presence, clears the stored session and navigates back
// to the login route. The store is cleared even when the gateway call
// fails: the local session must never outlive an intended logout.
func (c *Client) Logout(ctx context.Context) error {
	sess, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("session load on logout failed", map[string]any{"error": err.Error()})
	}
	if sess != nil {
		if err := c.rest.Logout(ctx, rest.LogoutRequest{Username: sess.Username}); err != nil {
			c.logger.Warn("logout request failed", map[string]any{"error": err.Error()})
		}
	}

	c.StopPresence()

	if err := c.store.Clear(ctx); err != nil {
		return WrapError(ErrorStore, "session clear failed", err)
	}
	c.dispatcher.fireNavigate(RouteLogin)
	return nil
}

// Close halts all background work and releases the store if the client
// opened it.
func (c *Client) Close() error {
	c.StopPresence()
	if c.ownStore {
		return c.store.Close()
	}
	return nil
}
