package fsx

import "fmt"

// Navigation routes that are part of the gateway contract.
const (
	RouteLogin     = "/login"
	RouteMessenger = "/messenger"
)

// Heartbeat is the payload delivered on the liveness push channel.
type Heartbeat struct {
	TS     float64 `json:"ts"`
	Status string  `json:"status"`
}

// StatusLine renders the heartbeat as the dashboard status text.
func (h Heartbeat) StatusLine() string {
	return fmt.Sprintf("alive | ts=%.2f | %s", h.TS, h.Status)
}

// Status line texts for channel state transitions.
const (
	statusConnected = "connected"
	statusClosed    = "closed"
	statusError     = "error"
)
