package rest

import "fmt"

// Request types

// RegisterRequest is the body for POST /api/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the body for POST /api/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body for POST /api/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// LogoutRequest is the body for POST /api/logout.
type LogoutRequest struct {
	Username string `json:"username"`
}

// Response types

// AckResponse is the generic {ok, msg} gateway reply.
type AckResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

// LoginResponse carries the session token on success.
type LoginResponse struct {
	OK       bool   `json:"ok"`
	Token    string `json:"token"`
	Username string `json:"username"`
	Msg      string `json:"msg"`
}

// MessageResponse is the forgot-password reply. Any 2xx means accepted;
// the gateway never discloses whether the account exists.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// OnlineResponse is the presence set as the gateway reports it.
type OnlineResponse struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// Errors

// APIError is a non-2xx reply. Msg is the server-supplied message and may
// be empty when the body carried none.
type APIError struct {
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// UnavailableError means the gateway is up but the core behind it is not
// (502/503). Detail is the server-supplied explanation.
type UnavailableError struct {
	Status int
	Detail string
}

func (e *UnavailableError) Error() string {
	return e.Detail
}
