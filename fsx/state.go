package fsx

// ChannelState represents the current state of the liveness push channel.
type ChannelState int

const (
	// StateIdle means no connection has been attempted yet.
	StateIdle ChannelState = iota

	// StateConnected means the channel is open and delivering heartbeats.
	StateConnected

	// StateErrored means the channel hit a fault. The transport still owes
	// a close, so Errored may transition to Closed.
	StateErrored

	// StateClosed means the channel is gone. Terminal for one connection
	// instance unless reconnect is enabled.
	StateClosed
)

// String returns the string representation of a ChannelState.
func (s ChannelState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateErrored:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateEvent represents a liveness state change.
type StateEvent struct {
	OldState ChannelState
	NewState ChannelState
	Error    error // optional error that caused the change
}
