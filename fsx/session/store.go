package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/fsxlabs/fsx-sdk-go/fsx/session/migrations"
)

// ErrPartialSession is returned when a save would leave a token without a
// username or vice versa.
var ErrPartialSession = errors.New("session: token and username must both be set")

// Store is durable key-value persistence of the current session.
type Store interface {
	// Save replaces the stored session wholesale.
	Save(ctx context.Context, s Session) error
	// Load returns the stored session, or (nil, nil) when none exists.
	Load(ctx context.Context) (*Session, error)
	// Clear removes the stored session. Idempotent.
	Clear(ctx context.Context) error
	Close() error
}

// SQLiteStore keeps the session in a single-row SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at dsn and applies migrations.
func Open(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	// One connection: the store is a single row, and ":memory:" databases
	// are per-connection.
	db.SetMaxOpenConns(1)
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run session store migrations: %w", err)
	}
	return nil
}

// Save upserts the single session row in one statement, so a crash can
// never leave half a session behind.
func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	if sess.Token == "" || sess.Username == "" {
		return ErrPartialSession
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, token, username, saved_at) VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, username = excluded.username, saved_at = excluded.saved_at
	`, sess.Token, sess.Username)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `SELECT token, username FROM session WHERE id = 1`).
		Scan(&sess.Token, &sess.Username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess.ExpiresAt = TokenExpiry(sess.Token)
	return &sess, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
