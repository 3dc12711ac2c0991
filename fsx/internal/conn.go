package internal

import (
	"context"
	"time"

	"github.com/coder/websocket"
)

// Conn wraps websocket.Conn with a read timeout. The liveness channel is
// receive-only: the client never writes application frames.
type Conn struct {
	ws          *websocket.Conn
	readTimeout time.Duration
}

func NewConn(ws *websocket.Conn, readTimeout time.Duration) *Conn {
	return &Conn{ws: ws, readTimeout: readTimeout}
}

// Read returns the next raw frame. Payload decoding is left to the caller
// so a malformed frame can be reported without tearing the channel down.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}
	_, data, err := c.ws.Read(ctx)
	return data, err
}

func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}
