package fsx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsComparesByCode(t *testing.T) {
	err := WrapError(ErrorTransport, "Network error: boom", errors.New("boom"))
	assert.ErrorIs(t, err, NewError(ErrorTransport, ""))
	assert.NotErrorIs(t, err, NewError(ErrorValidation, ""))
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := WrapError(ErrorStore, "save failed", inner)
	assert.ErrorIs(t, err, inner)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorValidation, CodeOf(NewError(ErrorValidation, "x")))
	assert.Equal(t, ErrorUnknown, CodeOf(errors.New("plain")))
	// Codes survive another layer of wrapping.
	wrapped := fmt.Errorf("context: %w", NewError(ErrorBusy, "x"))
	assert.Equal(t, ErrorBusy, CodeOf(wrapped))
}

func TestHeartbeatStatusLine(t *testing.T) {
	assert.Equal(t, "alive | ts=3.14 | ok", Heartbeat{TS: 3.14159, Status: "ok"}.StatusLine())
	assert.Equal(t, "alive | ts=0.00 | ", Heartbeat{}.StatusLine())
}
