package fsx

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// ErrorValidation is a local validation failure caught before any
	// network call. Always user-correctable, never a system fault.
	ErrorValidation

	// ErrorServerLogical is a server-reported logical failure: a 2xx
	// response with ok:false, or an explicit 4xx carrying a message
	// (invalid credentials, weak reset token, and so on).
	ErrorServerLogical

	// ErrorTransport is a network failure, a non-JSON response, or an
	// HTTP status with no decodable server message.
	ErrorTransport

	// ErrorServiceUnavailable means the gateway answered but the backing
	// core is down (502/503 with a detail message).
	ErrorServiceUnavailable

	// ErrorSerialization is a malformed payload on the push channel.
	ErrorSerialization

	// ErrorBusy means a submission for the same form is already in flight.
	ErrorBusy

	// ErrorNoSession means an operation required an authenticated session
	// and none was stored (or the stored one has expired).
	ErrorNoSession

	// ErrorNotConnected means the liveness channel is not established.
	ErrorNotConnected

	// ErrorStore is a local persistence failure.
	ErrorStore
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorValidation:
		return "validation"
	case ErrorServerLogical:
		return "server_error"
	case ErrorTransport:
		return "network_error"
	case ErrorServiceUnavailable:
		return "service_unavailable"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorBusy:
		return "busy"
	case ErrorNoSession:
		return "no_session"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorStore:
		return "store_error"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// FsxError is a structured error with code and context. Message holds the
// user-facing text exactly as it should be rendered.
type FsxError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *FsxError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *FsxError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is comparison by code.
func (e *FsxError) Is(target error) bool {
	t, ok := target.(*FsxError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new FsxError with the given code and message.
func NewError(code ErrorCode, message string) *FsxError {
	return &FsxError{Code: code, Message: message}
}

// WrapError wraps an existing error with an FsxError.
func WrapError(code ErrorCode, message string, err error) *FsxError {
	return &FsxError{Code: code, Message: message, Wrapped: err}
}

// CodeOf extracts the ErrorCode from err, or ErrorUnknown.
func CodeOf(err error) ErrorCode {
	var fe *FsxError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ErrorUnknown
}

// IsValidationError reports whether err is a local validation failure.
func IsValidationError(err error) bool { return CodeOf(err) == ErrorValidation }

// IsTransportError reports whether err is a network-level failure.
func IsTransportError(err error) bool { return CodeOf(err) == ErrorTransport }

// IsServiceUnavailable reports whether err is a backend-unavailable failure.
func IsServiceUnavailable(err error) bool { return CodeOf(err) == ErrorServiceUnavailable }
