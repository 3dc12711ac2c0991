package fsx

import "time"

// Form identifies which submission surface an auth event belongs to.
type Form int

const (
	FormSignUp Form = iota
	FormSignIn
	FormForgot
	FormReset
)

// String returns the string representation of a Form.
func (f Form) String() string {
	switch f {
	case FormSignUp:
		return "sign_up"
	case FormSignIn:
		return "sign_in"
	case FormForgot:
		return "forgot_password"
	case FormReset:
		return "reset_password"
	default:
		return "unknown"
	}
}

// View identifies a pane on the login page.
type View int

const (
	ViewSignIn View = iota
	ViewSignUp
)

// Notice is a transient success message with its auto-dismiss TTL.
type Notice struct {
	Form Form
	Text string
	TTL  time.Duration
}
