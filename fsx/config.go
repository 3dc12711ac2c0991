package fsx

import "time"

// Config controls how the SDK talks to the fsx gateway.
type Config struct {
	// GatewayURL is the HTTP base of the gateway, e.g. "http://localhost:8000".
	// The REST client appends "/api".
	GatewayURL string

	// LivenessURL is the push-channel endpoint, e.g. "ws://localhost:8000/ws".
	LivenessURL string

	// StorePath is the SQLite DSN for the local session store.
	// Use ":memory:" for a throwaway store.
	StorePath string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	RequestTimeout   time.Duration

	// PollInterval is the presence refresh cadence.
	PollInterval time.Duration

	// PollMaxBackoff caps the delay between polls after consecutive
	// failures. Set to PollInterval to disable backoff growth.
	PollMaxBackoff time.Duration

	// LivenessReconnect enables automatic redial of the push channel with
	// backoff. Off by default: a closed channel stays closed.
	LivenessReconnect bool

	// NoticeTTL is how long transient success notices should stay visible.
	NoticeTTL time.Duration

	// SignInSwitchDelay is the pause between a successful registration
	// notice and switching the active view to sign-in.
	SignInSwitchDelay time.Duration

	// LoginRedirectDelay is the pause between a successful password reset
	// and the redirect to the login route.
	LoginRedirectDelay time.Duration

	// ModalCloseDelay is the pause before the forgot-password modal closes
	// after its neutral confirmation.
	ModalCloseDelay time.Duration
}

// DefaultConfig returns the timings the gateway UI ships with.
func DefaultConfig() Config {
	return Config{
		StorePath:          "fsx.db",
		HandshakeTimeout:   10 * time.Second,
		ReadTimeout:        30 * time.Second,
		RequestTimeout:     30 * time.Second,
		PollInterval:       2 * time.Second,
		PollMaxBackoff:     30 * time.Second,
		NoticeTTL:          3 * time.Second,
		SignInSwitchDelay:  1 * time.Second,
		LoginRedirectDelay: 2 * time.Second,
		ModalCloseDelay:    3 * time.Second,
	}
}
