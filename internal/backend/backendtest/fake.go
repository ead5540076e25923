// Package backendtest is an in-memory backend for tests, with failure injection.
package backendtest

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"nxttask/internal/backend"
	"nxttask/internal/model"
)

// Operation names accepted by Service.FailOn.
const (
	OpSelectTasks    = "tasks.select"
	OpInsertTask     = "tasks.insert"
	OpUpdateTask     = "tasks.update"
	OpInsertLog      = "logs.insert"
	OpSelectLogs     = "logs.select"
	OpSelectProfile  = "profiles.select"
	OpSelectProfiles = "profiles.list"
	OpUpdateRole     = "profiles.role"
	OpSignIn         = "auth.signin"
	OpSignUp         = "auth.signup"
	OpSignOut        = "auth.signout"
)

type account struct {
	user      model.User
	password  string
	confirmed bool
}

// Service is the shared state behind every Client, like one hosted project.
type Service struct {
	mu       sync.Mutex
	accounts map[string]*account
	profiles map[string]backend.ProfileRow
	tasks    []backend.TaskRow
	logs     []backend.PriorityLogRow
	fail     map[string]error
	calls    map[string]int
	seq      int
	clock    time.Time

	// HangSignOut makes SignOut block until its context is done.
	HangSignOut bool
	// AutoConfirm lets new users sign in without confirmation.
	AutoConfirm bool
}

func NewService() *Service {
	return &Service{
		accounts: map[string]*account{},
		profiles: map[string]backend.ProfileRow{},
		fail:     map[string]error{},
		calls:    map[string]int{},
		clock:    time.Date(2025, 5, 17, 9, 0, 0, 0, time.UTC),
	}
}

// FailOn makes op return err until cleared with FailOn(op, nil).
func (s *Service) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls returns how many times op was attempted.
func (s *Service) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// AddUser registers a confirmed user with a profile.
func (s *Service) AddUser(email, password, fullName string, role model.Role) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.createLocked(email, password, fullName)
	s.accounts[email].confirmed = true
	p := s.profiles[u.ID]
	p.Role = string(role)
	s.profiles[u.ID] = p
	return u
}

// RemoveProfile drops the profile row of userID.
func (s *Service) RemoveProfile(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
}

// Logs returns a copy of every priority log row in insertion order.
func (s *Service) Logs() []backend.PriorityLogRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.PriorityLogRow(nil), s.logs...)
}

// Tasks returns a copy of every task row in insertion order.
func (s *Service) Tasks() []backend.TaskRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.TaskRow(nil), s.tasks...)
}

// SeedTask inserts row as-is, filling id and timestamps when empty.
func (s *Service) SeedTask(row backend.TaskRow) backend.TaskRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row.ID == "" {
		row.ID = s.nextIDLocked("task")
	}
	if row.CreatedAt == "" {
		row.CreatedAt = s.tickLocked()
		row.UpdatedAt = row.CreatedAt
	}
	s.tasks = append(s.tasks, row)
	return row
}

func (s *Service) begin(op string) error {
	s.calls[op]++
	return s.fail[op]
}

func (s *Service) nextIDLocked(prefix string) string {
	s.seq++
	return prefix + "-" + strconv.Itoa(s.seq)
}

func (s *Service) tickLocked() string {
	s.clock = s.clock.Add(time.Second)
	return s.clock.Format(backend.TimestampLayout)
}

func (s *Service) createLocked(email, password, fullName string) model.User {
	id := s.nextIDLocked("user")
	u := model.User{ID: id, Email: email, CreatedAt: s.clock}
	s.accounts[email] = &account{user: u, password: password, confirmed: s.AutoConfirm}
	ts := s.tickLocked()
	var name *string
	if fullName != "" {
		name = &fullName
	}
	s.profiles[id] = backend.ProfileRow{
		ID:        id,
		Email:     email,
		FullName:  name,
		Role:      string(model.RoleTeamMember),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	return u
}

// Client is one connection to the Service. It keeps its own session.
type Client struct {
	svc *Service

	mu        sync.Mutex
	session   *backend.Session
	listeners map[int]func(backend.AuthChange)
	nextID    int
}

var _ backend.Client = (*Client)(nil)

func (s *Service) NewClient() *Client {
	return &Client{svc: s, listeners: map[int]func(backend.AuthChange){}}
}

func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

func (c *Client) GetSession(ctx context.Context) (*backend.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, nil
	}
	cp := *c.session
	return &cp, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	s := c.svc
	s.mu.Lock()
	if err := s.begin(OpSignIn); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	acc, ok := s.accounts[email]
	if !ok || acc.password != password {
		s.mu.Unlock()
		return nil, errors.New("Invalid login credentials")
	}
	if !acc.confirmed {
		s.mu.Unlock()
		return nil, errors.New("Email not confirmed")
	}
	sess := &backend.Session{
		AccessToken: s.nextIDLocked("token"),
		ExpiresAt:   s.clock.Add(time.Hour),
		User:        acc.user,
	}
	s.mu.Unlock()

	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()
	cp := *sess
	c.emit(backend.AuthChange{Event: backend.EventSignedIn, Session: &cp})
	return sess, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*model.User, error) {
	s := c.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpSignUp); err != nil {
		return nil, err
	}
	if len(password) < 6 {
		return nil, errors.New("Password should be at least 6 characters")
	}
	if _, exists := s.accounts[email]; exists {
		return nil, errors.New("User already registered")
	}
	u := s.createLocked(email, password, metadata["full_name"])
	return &u, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	s := c.svc
	s.mu.Lock()
	err := s.begin(OpSignOut)
	hang := s.HangSignOut
	s.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	c.emit(backend.AuthChange{Event: backend.EventSignedOut})
	return nil
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

func (c *Client) userID() *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	id := c.session.User.ID
	return &id
}

func (c *Client) SelectTasks(ctx context.Context) ([]backend.TaskRow, error) {
	s := c.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpSelectTasks); err != nil {
		return nil, err
	}
	out := append([]backend.TaskRow(nil), s.tasks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (c *Client) InsertTask(ctx context.Context, row backend.TaskRow) (backend.TaskRow, error) {
	uid := c.userID()
	s := c.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpInsertTask); err != nil {
		return backend.TaskRow{}, err
	}
	if row.ID == "" {
		row.ID = s.nextIDLocked("task")
	}
	for _, existing := range s.tasks {
		if existing.ID == row.ID {
			return backend.TaskRow{}, errors.New(`duplicate key value violates unique constraint "tasks_pkey"`)
		}
	}
	row.CreatedAt = s.tickLocked()
	row.UpdatedAt = row.CreatedAt
	row.UserID = uid
	if row.Tags == nil {
		row.Tags = []string{}
	}
	s.tasks = append(s.tasks, row)
	return row, nil
}

func (c *Client) UpdateTask(ctx context.Context, row backend.TaskRow) (backend.TaskRow, error) {
	s := c.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpUpdateTask); err != nil {
		return backend.TaskRow{}, err
	}
	for i, existing := range s.tasks {
		if existing.ID != row.ID {
			continue
		}
		row.CreatedAt = existing.CreatedAt
		row.UserID = existing.UserID
		row.UpdatedAt = s.tickLocked()
		if row.Tags == nil {
			row.Tags = []string{}
		}
		s.tasks[i] = row
		return row, nil
	}
	return backend.TaskRow{}, errors.New("JSON object requested, multiple (or no) rows returned")
}

func (c *Client) InsertPriorityLog(ctx context.Context, row backend.PriorityLogRow) (backend.PriorityLogRow, error) {
	s := c.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpInsertLog); err != nil {
		return backend.PriorityLogRow{}, err
	}
	row.ID = s.nextIDLocked("log")
	row.CreatedAt = s.tickLocked()
	s.logs = append(s.logs, row)
	return row, nil
}

func (c *Client) SelectPriorityLogs(ctx context.Context, taskID string) ([]backend.PriorityLogRow, error) {
	s := c.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpSelectLogs); err != nil {
		return nil, err
	}
	out := []backend.PriorityLogRow{}
	for _, row := range s.logs {
		if row.TaskID == taskID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (c *Client) SelectProfile(ctx context.Context, userID string) (backend.ProfileRow, error) {
	s := c.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpSelectProfile); err != nil {
		return backend.ProfileRow{}, err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return backend.ProfileRow{}, errors.New("JSON object requested, multiple (or no) rows returned")
	}
	return p, nil
}

func (c *Client) SelectProfiles(ctx context.Context) ([]backend.ProfileRow, error) {
	s := c.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpSelectProfiles); err != nil {
		return nil, err
	}
	out := make([]backend.ProfileRow, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (c *Client) UpdateProfileRole(ctx context.Context, userID, role string) (backend.ProfileRow, error) {
	s := c.svc
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpUpdateRole); err != nil {
		return backend.ProfileRow{}, err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return backend.ProfileRow{}, errors.New("JSON object requested, multiple (or no) rows returned")
	}
	p.Role = role
	p.UpdatedAt = s.tickLocked()
	s.profiles[userID] = p
	return p, nil
}
