// Package backend is the contract nxttask consumes from its hosted backend:
// session issuance with change notifications, and a row API over the tasks,
// task_priority_logs and profiles tables.
package backend

import (
	"context"
	"time"

	"nxttask/internal/model"
)

type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        model.User
}

type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
)

type AuthChange struct {
	Event   AuthEvent
	Session *Session
}

type Auth interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignUp registers a user. It does not establish a session.
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (*model.User, error)
	SignOut(ctx context.Context) error
	// OnAuthStateChange registers fn for every session change and returns an unsubscribe func.
	OnAuthStateChange(fn func(AuthChange)) (unsubscribe func())
}

type Tables interface {
	// SelectTasks returns every task row ordered by created_at, newest first.
	SelectTasks(ctx context.Context) ([]TaskRow, error)
	InsertTask(ctx context.Context, row TaskRow) (TaskRow, error)
	// UpdateTask writes all mutable columns of the row with row.ID.
	UpdateTask(ctx context.Context, row TaskRow) (TaskRow, error)

	InsertPriorityLog(ctx context.Context, row PriorityLogRow) (PriorityLogRow, error)
	// SelectPriorityLogs returns the rows for taskID ordered by created_at, newest first.
	SelectPriorityLogs(ctx context.Context, taskID string) ([]PriorityLogRow, error)

	SelectProfile(ctx context.Context, userID string) (ProfileRow, error)
	SelectProfiles(ctx context.Context) ([]ProfileRow, error)
	UpdateProfileRole(ctx context.Context, userID, role string) (ProfileRow, error)
}

// Client is one signed-in-or-not connection to the backend, like a browser tab.
type Client interface {
	Auth
	Tables
	AccessToken() string
}
