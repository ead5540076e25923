package store

import (
	"context"
	"errors"
	"testing"
)

func TestConfirmEmailAllowsSignIn(t *testing.T) {
	db := openTestDB(t, Options{})
	ctx := context.Background()
	if _, err := db.SignUp(ctx, "sam@example.com", "secret1", "Sam Lee", false); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	_, err := db.SignIn(ctx, "sam@example.com", "secret1")
	var authErr AuthError
	if !errors.As(err, &authErr) || authErr.Message != MsgEmailNotConfirmed {
		t.Fatalf("expected %q, got %v", MsgEmailNotConfirmed, err)
	}

	if err := db.ConfirmEmail(ctx, " sam@example.com "); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}
	if _, err := db.SignIn(ctx, "sam@example.com", "secret1"); err != nil {
		t.Fatalf("SignIn after confirm: %v", err)
	}
	if err := db.ConfirmEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUsersListing(t *testing.T) {
	db := openTestDB(t, Options{})
	ctx := context.Background()
	if _, err := db.SignUp(ctx, "b@example.com", "secret1", "Bea", false); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SignUp(ctx, "a@example.com", "secret1", "", true); err != nil {
		t.Fatal(err)
	}

	users, err := db.Users(ctx)
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if len(users) != 2 || users[0].Email != "a@example.com" || users[1].Email != "b@example.com" {
		t.Fatalf("expected users sorted by email, got %+v", users)
	}
	if !users[0].Confirmed || users[1].Confirmed {
		t.Fatalf("unexpected confirmation flags %+v", users)
	}
	if users[1].FullName == nil || *users[1].FullName != "Bea" || users[1].Role != "team_member" {
		t.Fatalf("unexpected profile data %+v", users[1])
	}
}
