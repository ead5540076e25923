package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"nxttask/internal/apperr"
	"nxttask/internal/backend/backendtest"
	"nxttask/internal/model"
	"nxttask/internal/notice"
	"nxttask/internal/taskdata"
)

func newTestStore(t *testing.T, svc *backendtest.Service, timeout time.Duration) (*Store, *notice.Feed) {
	t.Helper()
	client := svc.NewClient()
	feed := notice.NewFeed(10)
	st := NewStore(client, taskdata.New(client, nil), Options{Notices: feed, SignOutTimeout: timeout})
	t.Cleanup(st.Close)
	return st, feed
}

func lastNotice(t *testing.T, feed *notice.Feed) notice.Notice {
	t.Helper()
	recent := feed.Recent()
	if len(recent) == 0 {
		t.Fatalf("expected a notice")
	}
	return recent[len(recent)-1]
}

func TestStoreStartsLoading(t *testing.T) {
	st, _ := newTestStore(t, backendtest.NewService(), 0)
	snap := st.Snapshot()
	if !snap.IsLoading || snap.IsAuthenticated || snap.Phase != PhaseLoading {
		t.Fatalf("expected loading before start, got %+v", snap)
	}

	st.Start(context.Background())
	snap = st.Snapshot()
	if snap.IsLoading || snap.IsAuthenticated || snap.User != nil || snap.Profile != nil {
		t.Fatalf("expected settled signed-out snapshot, got %+v", snap)
	}
}

func TestSignInPublishesProfile(t *testing.T) {
	svc := backendtest.NewService()
	svc.AddUser("alex@example.com", "secret1", "Alex Johnson", model.RoleManager)
	st, feed := newTestStore(t, svc, 0)
	st.Start(context.Background())

	if err := st.SignIn(context.Background(), "alex@example.com", "secret1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	snap := st.Snapshot()
	if !snap.IsAuthenticated || snap.IsLoading {
		t.Fatalf("expected authenticated snapshot, got %+v", snap)
	}
	if snap.Profile == nil || snap.DisplayName() != "Alex Johnson" || snap.Role() != model.RoleManager {
		t.Fatalf("unexpected profile: %+v", snap.Profile)
	}
	if n := lastNotice(t, feed); n.Kind != notice.KindSuccess || n.Message != MsgLoginSuccess {
		t.Fatalf("unexpected notice: %+v", n)
	}
}

func TestSignInBadCredentials(t *testing.T) {
	svc := backendtest.NewService()
	svc.AddUser("alex@example.com", "secret1", "Alex Johnson", model.RoleTeamMember)
	st, feed := newTestStore(t, svc, 0)
	st.Start(context.Background())

	err := st.SignIn(context.Background(), "alex@example.com", "wrong-password")
	var authErr apperr.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if authErr.Message != "Invalid login credentials" {
		t.Fatalf("message = %q", authErr.Message)
	}
	snap := st.Snapshot()
	if snap.IsLoading || snap.IsAuthenticated {
		t.Fatalf("store must settle unauthenticated, got %+v", snap)
	}
	if n := lastNotice(t, feed); n.Kind != notice.KindError {
		t.Fatalf("expected error notice, got %+v", n)
	}
}

func TestProfileFailureStillAuthenticates(t *testing.T) {
	svc := backendtest.NewService()
	svc.AddUser("sam@example.com", "secret1", "Sam", model.RoleTeamMember)
	svc.FailOn(backendtest.OpSelectProfile, errors.New("relation \"profiles\" does not exist"))
	st, _ := newTestStore(t, svc, 0)
	st.Start(context.Background())

	if err := st.SignIn(context.Background(), "sam@example.com", "secret1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	snap := st.Snapshot()
	if !snap.IsAuthenticated || snap.Profile != nil {
		t.Fatalf("expected authenticated with nil profile, got %+v", snap)
	}
	if snap.DisplayName() != "sam@example.com" {
		t.Fatalf("display name should fall back to email, got %q", snap.DisplayName())
	}
}

func TestSignUpDoesNotAuthenticate(t *testing.T) {
	svc := backendtest.NewService()
	st, feed := newTestStore(t, svc, 0)
	st.Start(context.Background())

	if err := st.SignUp(context.Background(), "new@example.com", "secret1", "New Person"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if snap := st.Snapshot(); snap.IsAuthenticated || snap.IsLoading {
		t.Fatalf("sign-up must not authenticate, got %+v", snap)
	}
	if n := lastNotice(t, feed); n.Message != MsgSignUpSuccess {
		t.Fatalf("unexpected notice %+v", n)
	}

	err := st.SignUp(context.Background(), "new@example.com", "secret1", "New Person")
	var authErr apperr.AuthenticationError
	if !errors.As(err, &authErr) || authErr.Message != "User already registered" {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
}

func TestSignOutSuccess(t *testing.T) {
	svc := backendtest.NewService()
	svc.AddUser("alex@example.com", "secret1", "Alex Johnson", model.RoleTeamMember)
	st, feed := newTestStore(t, svc, 0)
	st.Start(context.Background())
	if err := st.SignIn(context.Background(), "alex@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	if err := st.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	snap := st.Snapshot()
	if snap.IsAuthenticated || snap.IsLoading || snap.User != nil || snap.Profile != nil || snap.Phase != PhaseSignedOut {
		t.Fatalf("expected signed out, got %+v", snap)
	}
	if n := lastNotice(t, feed); n.Message != MsgSignOutSuccess {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestSignOutTimesOutButClearsState(t *testing.T) {
	svc := backendtest.NewService()
	svc.AddUser("alex@example.com", "secret1", "Alex Johnson", model.RoleTeamMember)
	st, feed := newTestStore(t, svc, 50*time.Millisecond)
	st.Start(context.Background())
	if err := st.SignIn(context.Background(), "alex@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	svc.HangSignOut = true

	updates, cancel := st.Subscribe()
	defer cancel()
	<-updates

	start := time.Now()
	err := st.SignOut(context.Background())
	if !errors.Is(err, ErrSignOutTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("returned before the timeout: %s", elapsed)
	}

	snap := st.Snapshot()
	if snap.User != nil || snap.Profile != nil || snap.IsAuthenticated || snap.IsLoading {
		t.Fatalf("expected cleared state, got %+v", snap)
	}
	if n := lastNotice(t, feed); n.Kind != notice.KindError || n.Message != MsgSignOutFailed {
		t.Fatalf("expected error notice, got %+v", n)
	}
	if got := <-updates; got.Phase != PhaseSignedOut {
		t.Fatalf("subscriber should see the signed-out snapshot last, got %+v", got)
	}
}

func TestSignOutRemoteFailureClearsState(t *testing.T) {
	svc := backendtest.NewService()
	svc.AddUser("alex@example.com", "secret1", "Alex Johnson", model.RoleTeamMember)
	st, _ := newTestStore(t, svc, 0)
	st.Start(context.Background())
	if err := st.SignIn(context.Background(), "alex@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	svc.FailOn(backendtest.OpSignOut, errors.New("network error"))

	if err := st.SignOut(context.Background()); err == nil {
		t.Fatalf("expected remote error")
	}
	if snap := st.Snapshot(); snap.IsAuthenticated || snap.IsLoading {
		t.Fatalf("expected cleared state, got %+v", snap)
	}
}

func TestDefaultSignOutTimeout(t *testing.T) {
	st := NewStore(backendtest.NewService().NewClient(), nil, Options{})
	if st.timeout != 3*time.Second {
		t.Fatalf("default timeout = %s", st.timeout)
	}
}

func TestWaitSettled(t *testing.T) {
	st, _ := newTestStore(t, backendtest.NewService(), 0)
	go st.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := st.WaitSettled(ctx)
	if err != nil {
		t.Fatalf("WaitSettled: %v", err)
	}
	if snap.IsLoading {
		t.Fatalf("expected settled snapshot")
	}
}
