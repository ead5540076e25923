package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"nxttask/internal/logging"
	"nxttask/internal/notice"
	"nxttask/internal/session"
	"nxttask/internal/store"
	"nxttask/internal/taskdata"
	"nxttask/internal/tasks"
)

const signInTimeout = 10 * time.Second

// actorSession is one signed-in account: its backend client, session store
// and task orchestrator. Commands and the TUI share it.
type actorSession struct {
	db      *store.DB
	repo    *taskdata.Repo
	session *session.Store
	tasks   *tasks.Orchestrator
	notices *notice.Feed
	l       logging.Logger
}

// logNotices reports notices through the logger; errors are also returned to
// the caller, so successes stay at debug.
type logNotices struct {
	feed *notice.Feed
	l    logging.Logger
}

func (n logNotices) Notify(kind notice.Kind, msg string) {
	n.feed.Notify(kind, msg)
	if kind == notice.KindError {
		n.l.Warn(msg)
		return
	}
	n.l.Debug(msg)
}

// signIn opens the database and signs in with --email/--password.
func signIn(ctx context.Context, app *App) (*actorSession, error) {
	form := session.LoginForm{Email: strings.TrimSpace(app.Email), Password: app.Password}
	if form.Email == "" {
		return nil, errors.New("missing --email (or NXTTASK_EMAIL)")
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	db, err := openDB(app)
	if err != nil {
		return nil, err
	}

	feed := notice.NewFeed(50)
	sink := logNotices{feed: feed, l: app.l}
	client := db.NewClient("")
	repo := taskdata.New(client, app.l)
	st := session.NewStore(client, repo, session.Options{
		Logger:         app.l,
		Notices:        sink,
		SignOutTimeout: app.cfg.SignOutTimeout,
	})
	st.Start(ctx)

	if err := st.SignIn(ctx, form.Email, form.Password); err != nil {
		st.Close()
		_ = db.Close()
		return nil, err
	}
	wctx, cancel := context.WithTimeout(ctx, signInTimeout)
	defer cancel()
	snap, err := st.WaitSettled(wctx)
	if err == nil && !snap.IsAuthenticated {
		err = errors.New("sign in did not establish a session")
	}
	if err != nil {
		st.Close()
		_ = db.Close()
		return nil, err
	}

	orch := tasks.New(repo, tasks.Options{
		Logger:  app.l,
		Notices: sink,
		Actor:   func() string { return st.Snapshot().DisplayName() },
	})
	return &actorSession{db: db, repo: repo, session: st, tasks: orch, notices: feed, l: app.l}, nil
}

// load fetches the task collection.
func (s *actorSession) load(ctx context.Context) error {
	return s.tasks.Load(ctx)
}

// close waits for pending audit writes, ends the session and closes the database.
func (s *actorSession) close(ctx context.Context) {
	s.tasks.Wait()
	if err := s.session.SignOut(ctx); err != nil {
		s.l.Debug("sign out", "error", err)
	}
	s.session.Close()
	if err := s.db.Close(); err != nil {
		s.l.Warn("closing database", "error", err)
	}
}
