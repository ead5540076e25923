package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"nxttask/internal/backend"
	"nxttask/internal/model"
)

// Client is one connection to the DB, holding at most one session like a
// browser tab holds its auth token. Table calls run as the signed-in user.
type Client struct {
	db *DB

	mu        sync.Mutex
	token     string
	listeners map[int]func(backend.AuthChange)
	nextID    int
}

var _ backend.Client = (*Client)(nil)

// NewClient returns a client restoring the session of accessToken, if any.
func (db *DB) NewClient(accessToken string) *Client {
	return &Client{db: db, token: accessToken, listeners: map[int]func(backend.AuthChange){}}
}

func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// GetSession verifies the held token. An expired or revoked token is dropped
// and reported as no session.
func (c *Client) GetSession(ctx context.Context) (*backend.Session, error) {
	token := c.AccessToken()
	if token == "" {
		return nil, nil
	}
	sess, err := c.db.VerifyToken(ctx, token)
	if errors.Is(err, ErrInvalidToken) {
		c.mu.Lock()
		if c.token == token {
			c.token = ""
		}
		c.mu.Unlock()
		return nil, nil
	}
	return sess, err
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	sess, err := c.db.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.token = sess.AccessToken
	c.mu.Unlock()
	c.emit(backend.AuthChange{Event: backend.EventSignedIn, Session: sess})
	return sess, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*model.User, error) {
	u, err := c.db.SignUp(ctx, email, password, metadata["full_name"], c.db.autoConfirm)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut revokes the session. The local token is dropped even when revoking fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.mu.Unlock()
	if token == "" {
		return nil
	}
	err := c.db.revokeSession(ctx, token)
	c.emit(backend.AuthChange{Event: backend.EventSignedOut})
	return err
}

func (c *Client) OnAuthStateChange(fn func(backend.AuthChange)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) emit(ch backend.AuthChange) {
	c.mu.Lock()
	fns := make([]func(backend.AuthChange), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ch)
	}
}

// user returns the signed-in user or the row-level security rejection for table.
func (c *Client) user(ctx context.Context, table string) (model.User, error) {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return model.User{}, err
	}
	if sess == nil {
		return model.User{}, fmt.Errorf("permission denied for table %s", table)
	}
	return sess.User, nil
}

func (c *Client) SelectTasks(ctx context.Context) ([]backend.TaskRow, error) {
	if _, err := c.user(ctx, "tasks"); err != nil {
		return nil, err
	}
	return c.db.selectTasks(ctx)
}

func (c *Client) InsertTask(ctx context.Context, row backend.TaskRow) (backend.TaskRow, error) {
	u, err := c.user(ctx, "tasks")
	if err != nil {
		return backend.TaskRow{}, err
	}
	return c.db.insertTask(ctx, row, u.ID)
}

func (c *Client) UpdateTask(ctx context.Context, row backend.TaskRow) (backend.TaskRow, error) {
	if _, err := c.user(ctx, "tasks"); err != nil {
		return backend.TaskRow{}, err
	}
	return c.db.updateTask(ctx, row)
}

func (c *Client) InsertPriorityLog(ctx context.Context, row backend.PriorityLogRow) (backend.PriorityLogRow, error) {
	if _, err := c.user(ctx, "task_priority_logs"); err != nil {
		return backend.PriorityLogRow{}, err
	}
	return c.db.insertPriorityLog(ctx, row)
}

func (c *Client) SelectPriorityLogs(ctx context.Context, taskID string) ([]backend.PriorityLogRow, error) {
	if _, err := c.user(ctx, "task_priority_logs"); err != nil {
		return nil, err
	}
	return c.db.selectPriorityLogs(ctx, taskID)
}

func (c *Client) SelectProfile(ctx context.Context, userID string) (backend.ProfileRow, error) {
	if _, err := c.user(ctx, "profiles"); err != nil {
		return backend.ProfileRow{}, err
	}
	return c.db.selectProfile(ctx, userID)
}

func (c *Client) SelectProfiles(ctx context.Context) ([]backend.ProfileRow, error) {
	if _, err := c.user(ctx, "profiles"); err != nil {
		return nil, err
	}
	return c.db.selectProfiles(ctx)
}

// UpdateProfileRole is allowed to managers only.
func (c *Client) UpdateProfileRole(ctx context.Context, userID, role string) (backend.ProfileRow, error) {
	u, err := c.user(ctx, "profiles")
	if err != nil {
		return backend.ProfileRow{}, err
	}
	me, err := c.db.selectProfile(ctx, u.ID)
	if err != nil || me.Role != string(model.RoleManager) {
		return backend.ProfileRow{}, errors.New("permission denied for table profiles")
	}
	return c.db.updateRole(ctx, userID, role)
}
