// Package store is the local implementation of the hosted backend: users and
// token sessions, plus the tasks, task_priority_logs and profiles tables, all
// in one SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"

	"nxttask/internal/backend"
	"nxttask/internal/logging"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidToken = errors.New("invalid or expired token")
)

const DefaultSessionTTL = 7 * 24 * time.Hour

type transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type scannable interface {
	Scan(...any) error
}

type Options struct {
	// Secret signs access tokens. Required.
	Secret      []byte
	SessionTTL  time.Duration
	AutoConfirm bool
	Logger      logging.Logger
	Now         func() time.Time
}

type DB struct {
	conn     *sql.DB
	tx       transactor
	dbGetter txStdLib.DBGetter

	secret      []byte
	ttl         time.Duration
	autoConfirm bool
	l           logging.Logger
	now         func() time.Time
}

// Open opens (creating if needed) the database at path. Call Migrate before use.
func Open(path string, opts Options) (*DB, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("store: token secret is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	// modernc.org/sqlite applies _pragma parameters on every new connection.
	// WAL allows readers during a write; busy_timeout waits instead of failing with "database is locked".
	q := url.Values{}
	for _, p := range []string{"journal_mode(WAL)", "synchronous(NORMAL)", "foreign_keys(1)", "busy_timeout(5000)"} {
		q.Add("_pragma", p)
	}
	conn, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	tx, dbGetter := txStdLib.NewTransactor(conn, txStdLib.NestedTransactionsSavepoints)
	return &DB{
		conn:        conn,
		tx:          tx,
		dbGetter:    dbGetter,
		secret:      opts.Secret,
		ttl:         opts.SessionTTL,
		autoConfirm: opts.AutoConfirm,
		l:           opts.Logger,
		now:         opts.Now,
	}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) timestamp() string {
	return formatTime(db.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(backend.TimestampLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(backend.TimestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
