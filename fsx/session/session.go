// Package session persists the authenticated identity across process
// restarts. A session is created on successful login, replaced wholesale on
// every save, and destroyed on logout. It is never sent anywhere
// automatically; callers read it explicitly.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the locally stored identity: who we are and the opaque token
// proving it. ExpiresAt is populated when the token turns out to be a JWT
// with an exp claim, and stays zero for fully opaque tokens.
type Session struct {
	Username  string
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the session is past its known expiry. Sessions
// with no known expiry never expire locally; the server remains the
// authority either way.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// TokenExpiry extracts the exp claim from a JWT-shaped token without
// verifying the signature. Verification belongs to the server; the client
// only needs to know when to send the user back to login. Returns the zero
// time for opaque or claimless tokens.
func TokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
