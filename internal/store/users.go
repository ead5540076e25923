package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"nxttask/internal/backend"
	"nxttask/internal/model"
)

// Messages of rejected auth calls, as the hosted auth service words them.
const (
	MsgInvalidCredentials = "Invalid login credentials"
	MsgEmailNotConfirmed  = "Email not confirmed"
	MsgAlreadyRegistered  = "User already registered"
	MsgWeakPassword       = "Password should be at least 6 characters"
)

const minPasswordLength = 6

// AuthError is a rejected auth call; its message is shown to the user verbatim.
type AuthError struct {
	Message string
}

func (e AuthError) Error() string { return e.Message }

type userEntity struct {
	ID           string
	Email        string
	PasswordHash string
	ConfirmedAt  sql.NullString
	CreatedAt    string
}

const selectUsers = "SELECT id, email, password_hash, confirmed_at, created_at FROM users"

func extractUser(s scannable) (userEntity, error) {
	var e userEntity
	if err := s.Scan(&e.ID, &e.Email, &e.PasswordHash, &e.ConfirmedAt, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return userEntity{}, ErrNotFound
		}
		return userEntity{}, err
	}
	return e, nil
}

func mapToUser(e userEntity) model.User {
	return model.User{ID: e.ID, Email: e.Email, CreatedAt: parseTime(e.CreatedAt)}
}

func (db *DB) userByEmail(ctx context.Context, email string) (userEntity, error) {
	row := db.dbGetter(ctx).QueryRowContext(ctx, selectUsers+" WHERE email = ?", strings.TrimSpace(email))
	return extractUser(row)
}

func (db *DB) userByID(ctx context.Context, id string) (model.User, error) {
	row := db.dbGetter(ctx).QueryRowContext(ctx, selectUsers+" WHERE id = ?", id)
	e, err := extractUser(row)
	if err != nil {
		return model.User{}, err
	}
	return mapToUser(e), nil
}

// SignUp creates a user and its team_member profile in one transaction.
// fullName may be empty.
func (db *DB) SignUp(ctx context.Context, email, password, fullName string, confirmed bool) (model.User, error) {
	email = strings.TrimSpace(email)
	if len(password) < minPasswordLength {
		return model.User{}, AuthError{Message: MsgWeakPassword}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, err
	}

	u := model.User{ID: newID(), Email: email, CreatedAt: db.now()}
	err = db.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := db.userByEmail(ctx, email); err == nil {
			return AuthError{Message: MsgAlreadyRegistered}
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		ts := formatTime(u.CreatedAt)
		var confirmedAt sql.NullString
		if confirmed {
			confirmedAt = sql.NullString{String: ts, Valid: true}
		}
		query := "INSERT INTO users (id, email, password_hash, confirmed_at, created_at) VALUES (?, ?, ?, ?, ?)"
		db.l.Debug("creating user", "query", query, "email", email)
		if _, err := db.dbGetter(ctx).ExecContext(ctx, query, u.ID, email, string(hash), confirmedAt, ts); err != nil {
			return err
		}

		var name *string
		if n := strings.TrimSpace(fullName); n != "" {
			name = &n
		}
		query = "INSERT INTO profiles (id, email, full_name, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
		args := []any{u.ID, email, nullString(name), string(model.RoleTeamMember), ts, ts}
		db.l.Debug("creating profile", "query", query, "args", args)
		_, err := db.dbGetter(ctx).ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	u.CreatedAt = parseTime(formatTime(u.CreatedAt))
	return u, nil
}

// SignIn checks the credentials and opens a session.
func (db *DB) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	e, err := db.userByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, AuthError{Message: MsgInvalidCredentials}
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(e.PasswordHash), []byte(password)) != nil {
		return nil, AuthError{Message: MsgInvalidCredentials}
	}
	if !e.ConfirmedAt.Valid && !db.autoConfirm {
		return nil, AuthError{Message: MsgEmailNotConfirmed}
	}
	return db.issueSession(ctx, mapToUser(e))
}

// ConfirmEmail marks the user with email as confirmed.
func (db *DB) ConfirmEmail(ctx context.Context, email string) error {
	res, err := db.dbGetter(ctx).ExecContext(ctx,
		"UPDATE users SET confirmed_at = COALESCE(confirmed_at, ?) WHERE email = ?", db.timestamp(), strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return nil
}

// SetRole changes the role of the user with email.
func (db *DB) SetRole(ctx context.Context, email string, role model.Role) (backend.ProfileRow, error) {
	e, err := db.userByEmail(ctx, email)
	if err != nil {
		return backend.ProfileRow{}, fmt.Errorf("user %s: %w", email, err)
	}
	return db.updateRole(ctx, e.ID, string(role))
}

// UserInfo is one row of the admin user listing.
type UserInfo struct {
	Email     string  `json:"email" yaml:"email"`
	FullName  *string `json:"fullName" yaml:"fullName"`
	Role      string  `json:"role" yaml:"role"`
	Confirmed bool    `json:"confirmed" yaml:"confirmed"`
	CreatedAt string  `json:"createdAt" yaml:"createdAt"`
}

func (db *DB) Users(ctx context.Context) ([]UserInfo, error) {
	query := `SELECT u.email, p.full_name, COALESCE(p.role, ''), u.confirmed_at IS NOT NULL, u.created_at
		FROM users u LEFT JOIN profiles p ON p.id = u.id ORDER BY u.email`
	rows, err := db.dbGetter(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []UserInfo{}
	for rows.Next() {
		var (
			info UserInfo
			name sql.NullString
		)
		if err := rows.Scan(&info.Email, &name, &info.Role, &info.Confirmed, &info.CreatedAt); err != nil {
			return nil, err
		}
		info.FullName = stringPtr(name)
		out = append(out, info)
	}
	return out, rows.Err()
}
