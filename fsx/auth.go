package fsx

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsxlabs/fsx-sdk-go/fsx/rest"
	"github.com/fsxlabs/fsx-sdk-go/fsx/session"
)

const minPasswordLength = 6

// Conservative email shape used by the forgot-password form.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User-facing texts, verbatim from the gateway UI.
const (
	msgInvalidEmail     = "Please enter a valid email address"
	msgFillAllFields    = "Please fill in all fields"
	msgPasswordMismatch = "Passwords do not match"
	msgPasswordTooShort = "Password must be at least 6 characters"
	msgEnterCredentials = "Please enter username and password"
	msgEnterEmail       = "Please enter your email address"
	msgMissingResetLink = "Invalid reset link. Missing token."
	msgInvalidResetLink = "Invalid reset link"

	noticeRegistered = "Account created successfully! Please sign in."
	noticeResetSent  = "If the email exists, a password reset link has been sent."
	noticeResetDone  = "Password reset successfully! Redirecting to login..."

	fallbackRegister = "Registration failed"
	fallbackLogin    = "Login failed"
	fallbackForgot   = "Failed to send reset link"
	fallbackReset    = "Failed to reset password"

	networkErrorPrefix = "Network error: "
)

// AuthFlow validates and submits registration, login, forgot-password and
// reset-password requests, and maps every outcome to a view event. Local
// validation always runs before any network call, in a fixed precedence, so
// a structurally invalid submission never reaches the wire.
type AuthFlow struct {
	rest       *rest.Client
	store      session.Store
	dispatcher *Dispatcher
	logger     Logger
	cfg        Config

	// One gate per form: a submission in flight rejects duplicates for the
	// same form without blocking the others. Always released.
	gates [4]sync.Mutex

	mu         sync.Mutex
	resetToken string
}

// NewAuthFlow constructs the flow. store receives the session on successful
// login; the dispatcher receives all view events.
func NewAuthFlow(rc *rest.Client, store session.Store, d *Dispatcher, cfg Config) *AuthFlow {
	return &AuthFlow{
		rest:       rc,
		store:      store,
		dispatcher: d,
		logger:     noopLogger{},
		cfg:        cfg,
	}
}

// SetLogger overrides logger (optional).
func (f *AuthFlow) SetLogger(l Logger) {
	if l != nil {
		f.logger = l
	}
}

// SubmitRegistration validates and submits a sign-up. On success it shows a
// transient notice and switches the view to sign-in after a short delay;
// the notice is the caller's cue to clear the password fields.
func (f *AuthFlow) SubmitRegistration(ctx context.Context, username, email, password, confirm string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateRegistration(username, email, password, confirm); err != nil {
		return f.validationFailed(FormSignUp, err)
	}

	release, err := f.acquire(FormSignUp)
	if err != nil {
		return err
	}
	defer release()

	resp, err := f.rest.Register(ctx, rest.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return f.requestFailed(FormSignUp, fallbackRegister, err)
	}
	if !resp.OK {
		return f.serverRejected(FormSignUp, resp.Msg, fallbackRegister)
	}

	f.dispatcher.fireNotice(Notice{Form: FormSignUp, Text: noticeRegistered, TTL: f.cfg.NoticeTTL})
	f.after(ctx, f.cfg.SignInSwitchDelay, func() { f.dispatcher.fireSwitchView(ViewSignIn) })
	return nil
}

// SubmitLogin validates and submits a sign-in. On success the session is
// persisted and the view navigates to the messenger.
func (f *AuthFlow) SubmitLogin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)

	if username == "" || password == "" {
		return f.validationFailed(FormSignIn, NewError(ErrorValidation, msgEnterCredentials))
	}

	release, err := f.acquire(FormSignIn)
	if err != nil {
		return err
	}
	defer release()

	resp, err := f.rest.Login(ctx, rest.LoginRequest{Username: username, Password: password})
	if err != nil {
		return f.requestFailed(FormSignIn, fallbackLogin, err)
	}
	if !resp.OK {
		return f.serverRejected(FormSignIn, resp.Msg, fallbackLogin)
	}

	if resp.Token != "" {
		name := resp.Username
		if name == "" {
			name = username
		}
		sess := session.Session{Username: name, Token: resp.Token}
		if err := f.store.Save(ctx, sess); err != nil {
			fe := WrapError(ErrorStore, fallbackLogin, err)
			f.dispatcher.fireFormError(FormSignIn, fe.Message)
			f.logger.Error("session save failed", map[string]any{"error": err.Error()})
			return fe
		}
	}
	f.dispatcher.fireNavigate(RouteMessenger)
	return nil
}

// RequestPasswordReset asks for a reset link. Any accepted response shows
// the same neutral confirmation whether or not the account exists, then
// closes the modal after a fixed delay.
func (f *AuthFlow) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)

	if email == "" {
		return f.validationFailed(FormForgot, NewError(ErrorValidation, msgEnterEmail))
	}
	if !emailPattern.MatchString(email) {
		return f.validationFailed(FormForgot, NewError(ErrorValidation, msgInvalidEmail))
	}

	release, err := f.acquire(FormForgot)
	if err != nil {
		return err
	}
	defer release()

	if _, err := f.rest.ForgotPassword(ctx, rest.ForgotPasswordRequest{Email: email}); err != nil {
		return f.requestFailed(FormForgot, fallbackForgot, err)
	}

	f.dispatcher.fireNotice(Notice{Form: FormForgot, Text: noticeResetSent, TTL: f.cfg.NoticeTTL})
	f.after(ctx, f.cfg.ModalCloseDelay, f.dispatcher.fireCloseForgotModal)
	return nil
}

// SetResetLink extracts the reset token from an incoming link's query
// string. Call once, at load time. A missing token immediately renders a
// persistent invalid-link state; nothing else is disabled.
func (f *AuthFlow) SetResetLink(rawURL string) error {
	var token string
	if u, err := url.Parse(rawURL); err == nil {
		token = u.Query().Get("token")
	}

	f.mu.Lock()
	f.resetToken = token
	f.mu.Unlock()

	if token == "" {
		f.dispatcher.fireFormError(FormReset, msgMissingResetLink)
		return NewError(ErrorValidation, msgMissingResetLink)
	}
	return nil
}

// ResetToken returns the token extracted by SetResetLink.
func (f *AuthFlow) ResetToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resetToken
}

// SubmitPasswordReset redeems the reset token for a new password. On
// success the view redirects to login after a fixed delay. The reset token
// is unrelated to the session token and is never persisted.
func (f *AuthFlow) SubmitPasswordReset(ctx context.Context, newPassword, confirm string) error {
	if err := f.validateReset(newPassword, confirm); err != nil {
		return f.validationFailed(FormReset, err)
	}

	release, err := f.acquire(FormReset)
	if err != nil {
		return err
	}
	defer release()

	resp, err := f.rest.ResetPassword(ctx, rest.ResetPasswordRequest{
		Token:       f.ResetToken(),
		NewPassword: newPassword,
	})
	if err != nil {
		return f.requestFailed(FormReset, fallbackReset, err)
	}
	if !resp.OK {
		return f.serverRejected(FormReset, resp.Msg, fallbackReset)
	}

	f.dispatcher.fireNotice(Notice{Form: FormReset, Text: noticeResetDone, TTL: f.cfg.NoticeTTL})
	f.after(ctx, f.cfg.LoginRedirectDelay, func() { f.dispatcher.fireNavigate(RouteLogin) })
	return nil
}

// Validation. Precedence is contractual: given several violations at once,
// only the first in order is reported.

func validateRegistration(username, email, password, confirm string) *FsxError {
	if email == "" || !strings.Contains(email, "@") {
		return NewError(ErrorValidation, msgInvalidEmail)
	}
	if username == "" || password == "" || confirm == "" {
		return NewError(ErrorValidation, msgFillAllFields)
	}
	if password != confirm {
		return NewError(ErrorValidation, msgPasswordMismatch)
	}
	if len(password) < minPasswordLength {
		return NewError(ErrorValidation, msgPasswordTooShort)
	}
	return nil
}

func (f *AuthFlow) validateReset(newPassword, confirm string) *FsxError {
	if newPassword == "" || confirm == "" {
		return NewError(ErrorValidation, msgFillAllFields)
	}
	if newPassword != confirm {
		return NewError(ErrorValidation, msgPasswordMismatch)
	}
	if len(newPassword) < minPasswordLength {
		return NewError(ErrorValidation, msgPasswordTooShort)
	}
	if f.ResetToken() == "" {
		return NewError(ErrorValidation, msgInvalidResetLink)
	}
	return nil
}

// Outcome plumbing.

func (f *AuthFlow) acquire(form Form) (func(), error) {
	if !f.gates[form].TryLock() {
		return nil, NewError(ErrorBusy, "submission already in flight")
	}
	f.dispatcher.fireBusy(form, true)
	return func() {
		f.dispatcher.fireBusy(form, false)
		f.gates[form].Unlock()
	}, nil
}

func (f *AuthFlow) validationFailed(form Form, err *FsxError) error {
	f.dispatcher.fireFormError(form, err.Message)
	return err
}

// requestFailed maps a failed request to the taxonomy: service unavailable
// (server detail), server logical (message or fallback), or transport.
func (f *AuthFlow) requestFailed(form Form, fallback string, err error) error {
	var fe *FsxError
	var ue *rest.UnavailableError
	var ae *rest.APIError
	switch {
	case errors.As(err, &ue):
		fe = WrapError(ErrorServiceUnavailable, ue.Detail, err)
	case errors.As(err, &ae):
		msg := ae.Msg
		if msg == "" {
			msg = fallback
		}
		fe = WrapError(ErrorServerLogical, msg, err)
	default:
		fe = WrapError(ErrorTransport, networkErrorPrefix+err.Error(), err)
	}
	f.dispatcher.fireFormError(form, fe.Message)
	f.logger.Warn("request failed", map[string]any{"form": form.String(), "error": err.Error()})
	return fe
}

func (f *AuthFlow) serverRejected(form Form, msg, fallback string) error {
	if msg == "" {
		msg = fallback
	}
	fe := NewError(ErrorServerLogical, msg)
	f.dispatcher.fireFormError(form, msg)
	return fe
}

// after runs fn once d elapses, unless ctx ends first. A deferred view
// event must never fire into a flow the caller has already abandoned.
func (f *AuthFlow) after(ctx context.Context, d time.Duration, fn func()) {
	if d <= 0 {
		fn()
		return
	}
	t := time.NewTimer(d)
	go func() {
		defer t.Stop()
		select {
		case <-t.C:
			fn()
		case <-ctx.Done():
		}
	}()
}
