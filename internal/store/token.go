package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nxttask/internal/backend"
	"nxttask/internal/model"
)

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// issueSession records a session row for u and returns its signed access token.
func (db *DB) issueSession(ctx context.Context, u model.User) (*backend.Session, error) {
	now := db.now()
	exp := now.Add(db.ttl)
	sid := newID()

	query := "INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)"
	args := []any{sid, u.ID, formatTime(now), formatTime(exp)}
	db.l.Debug("creating session", "query", query, "args", args)
	if _, err := db.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	claims := accessClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(db.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &backend.Session{AccessToken: token, ExpiresAt: exp, User: u}, nil
}

// VerifyToken returns the live session behind token. Expired, revoked or
// malformed tokens yield ErrInvalidToken.
func (db *DB) VerifyToken(ctx context.Context, token string) (*backend.Session, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return db.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(db.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	var (
		revoked sql.NullString
		expires string
	)
	row := db.dbGetter(ctx).QueryRowContext(ctx, "SELECT revoked_at, expires_at FROM sessions WHERE id = ? AND user_id = ?", claims.ID, claims.Subject)
	if err := row.Scan(&revoked, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	exp := parseTime(expires)
	if revoked.Valid || !db.now().Before(exp) {
		return nil, ErrInvalidToken
	}

	u, err := db.userByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &backend.Session{AccessToken: token, ExpiresAt: exp, User: u}, nil
}

// revokeSession marks the session behind token revoked. Unparseable tokens are ignored.
func (db *DB) revokeSession(ctx context.Context, token string) error {
	var claims accessClaims
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil || claims.ID == "" {
		return nil
	}
	query := "UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL"
	args := []any{db.timestamp(), claims.ID}
	db.l.Debug("revoking session", "query", query, "args", args)
	_, err = db.dbGetter(ctx).ExecContext(ctx, query, args...)
	return err
}

// PruneSessions deletes sessions that expired or were revoked before cutoff.
func (db *DB) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	ts := formatTime(cutoff)
	res, err := db.dbGetter(ctx).ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", ts, ts)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
