// Package perm decides whether a session may see a protected view.
package perm

import (
	"nxttask/internal/model"
	"nxttask/internal/session"
)

const (
	LoginPath = "/auth"
	HomePath  = "/"
)

// Outcome is what a protected view does with a request.
type Outcome int

const (
	// Pending: session still loading, render a neutral placeholder.
	Pending Outcome = iota
	RedirectLogin
	RedirectHome
	Allow
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	case Allow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decision is the guard's verdict; Location is set for redirects.
type Decision struct {
	Outcome  Outcome
	Location string
	// From is the originally requested path, kept for post-login return.
	From string
}

// Guard decides access to a protected view.
//
// Rules:
//   - While the session is loading, nothing is decided yet (Pending).
//   - Unauthenticated requests go to the login view, remembering the requested path.
//   - When requiredRole is set and the profile's role differs (or there is no profile),
//     the request goes to the home view.
//   - Otherwise the view renders.
func Guard(snap session.Snapshot, requiredRole model.Role, requestedPath string) Decision {
	if snap.IsLoading {
		return Decision{Outcome: Pending}
	}
	if !snap.IsAuthenticated {
		return Decision{Outcome: RedirectLogin, Location: LoginPath, From: requestedPath}
	}
	if requiredRole != "" && snap.Role() != requiredRole {
		return Decision{Outcome: RedirectHome, Location: HomePath}
	}
	return Decision{Outcome: Allow}
}
