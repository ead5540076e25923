// Package session holds the signed-in actor for one client and publishes
// consolidated snapshots whenever the backend session changes.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"nxttask/internal/apperr"
	"nxttask/internal/backend"
	"nxttask/internal/logging"
	"nxttask/internal/model"
	"nxttask/internal/notice"
)

var ErrSignOutTimeout = errors.New("sign out timed out")

const (
	DefaultSignOutTimeout = 3 * time.Second
	profileLookupTimeout  = 10 * time.Second
)

const (
	MsgLoginSuccess   = "Login successful!"
	MsgSignUpSuccess  = "Account created successfully! Please check your email to verify your account."
	MsgSignOutSuccess = "Signed out successfully"
	MsgSignOutFailed  = "Error during sign out. Please try again."
)

type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseSignedIn   Phase = "signed_in"
	PhaseSigningOut Phase = "signing_out"
	PhaseSignedOut  Phase = "signed_out"
)

type Snapshot struct {
	User            *model.User    `json:"user"`
	Profile         *model.Profile `json:"profile"`
	IsLoading       bool           `json:"isLoading"`
	IsAuthenticated bool           `json:"isAuthenticated"`
	Phase           Phase          `json:"phase"`
}

// DisplayName is the name tasks are assigned by: the profile's display name,
// else the user's email.
func (s Snapshot) DisplayName() string {
	if s.Profile != nil {
		return s.Profile.DisplayName()
	}
	if s.User != nil {
		return s.User.Email
	}
	return ""
}

func (s Snapshot) Role() model.Role {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}

type ProfileLookup interface {
	Profile(ctx context.Context, userID string) (*model.Profile, error)
}

type Options struct {
	Logger         logging.Logger
	Notices        notice.Sink
	SignOutTimeout time.Duration
}

type Store struct {
	auth     backend.Auth
	profiles ProfileLookup
	l        logging.Logger
	notices  notice.Sink
	timeout  time.Duration

	mu    sync.Mutex
	snap  Snapshot
	gen   uint64
	subs  map[chan Snapshot]struct{}
	unsub func()
}

func NewStore(auth backend.Auth, profiles ProfileLookup, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Notices == nil {
		opts.Notices = notice.Discard
	}
	if opts.SignOutTimeout <= 0 {
		opts.SignOutTimeout = DefaultSignOutTimeout
	}
	return &Store{
		auth:     auth,
		profiles: profiles,
		l:        opts.Logger,
		notices:  opts.Notices,
		timeout:  opts.SignOutTimeout,
		snap:     Snapshot{IsLoading: true, Phase: PhaseLoading},
		subs:     map[chan Snapshot]struct{}{},
	}
}

// Start follows backend session changes until Close, then checks for an
// existing session and publishes the first settled snapshot. Following starts
// first so a change racing the initial check is not lost.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	unsub := s.auth.OnAuthStateChange(func(ch backend.AuthChange) {
		ctx, cancel := context.WithTimeout(context.Background(), profileLookupTimeout)
		defer cancel()
		s.l.Debug("auth state change", "event", ch.Event)
		s.resolve(ctx, ch.Session)
	})
	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()

	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		s.l.Warn("initial session check failed", "error", err)
		sess = nil
	}
	s.mu.Lock()
	raced := s.gen != gen
	s.mu.Unlock()
	if raced {
		// A change or sign-out already settled the snapshot.
		return
	}
	s.resolve(ctx, sess)
}

// Close stops following the backend and closes every subscription.
func (s *Store) Close() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe returns a channel holding the latest snapshot. It starts with the
// current one; intermediate snapshots may be skipped by slow readers.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	ch <- s.snap
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
}

// WaitSettled blocks until the snapshot is no longer loading.
func (s *Store) WaitSettled(ctx context.Context) (Snapshot, error) {
	ch, cancel := s.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		case snap, ok := <-ch:
			if !ok {
				return s.Snapshot(), errors.New("session store closed")
			}
			if !snap.IsLoading {
				return snap, nil
			}
		}
	}
}

func (s *Store) SignIn(ctx context.Context, email, password string) error {
	s.setLoading(true)
	if _, err := s.auth.SignInWithPassword(ctx, email, password); err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Failed to sign in"
		}
		s.l.Error("sign in", "email", email, "error", err)
		s.notices.Notify(notice.KindError, msg)
		s.setLoading(false)
		return apperr.AuthenticationError{Message: msg}
	}
	// The backend's SIGNED_IN notification settles the snapshot.
	s.notices.Notify(notice.KindSuccess, MsgLoginSuccess)
	return nil
}

// SignUp registers an account. The new user must verify their email before signing in.
func (s *Store) SignUp(ctx context.Context, email, password, fullName string) error {
	s.setLoading(true)
	defer s.setLoading(false)
	_, err := s.auth.SignUp(ctx, email, password, map[string]string{"full_name": fullName})
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Failed to create account"
		}
		s.l.Error("sign up", "email", email, "error", err)
		s.notices.Notify(notice.KindError, msg)
		return apperr.AuthenticationError{Message: msg}
	}
	s.notices.Notify(notice.KindSuccess, MsgSignUpSuccess)
	return nil
}

// SignOut clears local state first, then races the remote sign-out against
// the sign-out timeout. Local state ends signed out whatever the remote outcome.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	s.snap = Snapshot{IsLoading: true, Phase: PhaseSigningOut}
	s.publishLocked()
	s.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.auth.SignOut(rctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-rctx.Done():
		err = rctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = ErrSignOutTimeout
	}

	s.mu.Lock()
	s.gen++
	s.snap = Snapshot{Phase: PhaseSignedOut}
	s.publishLocked()
	s.mu.Unlock()

	if err != nil {
		s.l.Error("sign out", "error", err)
		s.notices.Notify(notice.KindError, MsgSignOutFailed)
		return err
	}
	s.notices.Notify(notice.KindSuccess, MsgSignOutSuccess)
	return nil
}

// Refresh re-reads the profile of the signed-in user.
func (s *Store) Refresh(ctx context.Context) {
	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		s.l.Warn("session refresh failed", "error", err)
		return
	}
	s.resolve(ctx, sess)
}

func (s *Store) resolve(ctx context.Context, sess *backend.Session) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	next := Snapshot{Phase: PhaseSignedOut}
	if sess != nil {
		u := sess.User
		next = Snapshot{
			User:            &u,
			Profile:         s.fetchProfile(ctx, u.ID),
			IsAuthenticated: true,
			Phase:           PhaseSignedIn,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// A newer transition (another change or a sign-out) already won.
		return
	}
	s.snap = next
	s.publishLocked()
}

func (s *Store) fetchProfile(ctx context.Context, userID string) *model.Profile {
	if s.profiles == nil {
		return nil
	}
	p, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		s.l.Warn("fetching user profile", "userId", userID, "error", err)
		return nil
	}
	return p
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.IsLoading == loading {
		return
	}
	s.snap.IsLoading = loading
	s.publishLocked()
}

func (s *Store) publishLocked() {
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.snap:
		default:
		}
	}
}
