package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveThenLoad(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Session{Username: "bob", Token: "T"}))

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "bob", sess.Username)
	assert.Equal(t, "T", sess.Token)
}

func TestLoadWithoutSessionReturnsNilNil(t *testing.T) {
	store := openStore(t)

	sess, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSaveReplacesWholesale(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Session{Username: "bob", Token: "T1"}))
	require.NoError(t, store.Save(ctx, Session{Username: "carol", Token: "T2"}))

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "carol", sess.Username)
	assert.Equal(t, "T2", sess.Token)
}

func TestSaveRejectsPartialSession(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, Session{Username: "bob"}), ErrPartialSession)
	assert.ErrorIs(t, store.Save(ctx, Session{Token: "T"}), ErrPartialSession)

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess, "a rejected save must leave nothing behind")
}

func TestClearIsIdempotent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Session{Username: "bob", Token: "T"}))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestTokenExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "bob",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	assert.True(t, TokenExpiry(token).Equal(exp))
}

func TestTokenExpiryOpaqueTokenIsZero(t *testing.T) {
	assert.True(t, TokenExpiry("not-a-jwt").IsZero())
	assert.True(t, TokenExpiry("").IsZero())
}

func TestExpired(t *testing.T) {
	now := time.Now()

	var s Session
	assert.False(t, s.Expired(now), "no known expiry never expires locally")

	s.ExpiresAt = now.Add(-time.Minute)
	assert.True(t, s.Expired(now))

	s.ExpiresAt = now.Add(time.Minute)
	assert.False(t, s.Expired(now))
}

func TestLoadDerivesExpiryFromStoredJWT(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).
		SignedString([]byte("test-key"))
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, Session{Username: "bob", Token: token}))
	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, sess.ExpiresAt.Equal(exp))
}
