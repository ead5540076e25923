package store

import (
	"context"
	"database/sql"
	"errors"

	"nxttask/internal/backend"
)

const selectProfiles = "SELECT id, email, full_name, avatar_url, role, created_at, updated_at FROM profiles"

type profileEntity struct {
	ID        string
	Email     string
	FullName  sql.NullString
	AvatarURL sql.NullString
	Role      string
	CreatedAt string
	UpdatedAt string
}

func extractProfile(s scannable) (backend.ProfileRow, error) {
	var e profileEntity
	if err := s.Scan(&e.ID, &e.Email, &e.FullName, &e.AvatarURL, &e.Role, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return backend.ProfileRow{}, ErrNotFound
		}
		return backend.ProfileRow{}, err
	}
	return backend.ProfileRow{
		ID:        e.ID,
		Email:     e.Email,
		FullName:  stringPtr(e.FullName),
		AvatarURL: stringPtr(e.AvatarURL),
		Role:      e.Role,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}, nil
}

func (db *DB) selectProfile(ctx context.Context, userID string) (backend.ProfileRow, error) {
	p, err := extractProfile(db.dbGetter(ctx).QueryRowContext(ctx, selectProfiles+" WHERE id = ?", userID))
	if errors.Is(err, ErrNotFound) {
		return backend.ProfileRow{}, errNoRow
	}
	return p, err
}

func (db *DB) selectProfiles(ctx context.Context) ([]backend.ProfileRow, error) {
	rows, err := db.dbGetter(ctx).QueryContext(ctx, selectProfiles+" ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []backend.ProfileRow{}
	for rows.Next() {
		p, err := extractProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) updateRole(ctx context.Context, userID, role string) (backend.ProfileRow, error) {
	var out backend.ProfileRow
	err := db.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		query := "UPDATE profiles SET role = ?, updated_at = ? WHERE id = ?"
		args := []any{role, db.timestamp(), userID}
		db.l.Debug("updating role", "query", query, "args", args)
		res, err := db.dbGetter(ctx).ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errNoRow
		}
		out, err = db.selectProfile(ctx, userID)
		return err
	})
	return out, err
}
