package perm

import (
	"testing"

	"nxttask/internal/model"
	"nxttask/internal/session"
)

func TestGuard(t *testing.T) {
	manager := &model.Profile{ID: "u1", Email: "m@example.com", Role: model.RoleManager}
	member := &model.Profile{ID: "u2", Email: "t@example.com", Role: model.RoleTeamMember}
	user := &model.User{ID: "u1", Email: "m@example.com"}

	tests := []struct {
		name     string
		snap     session.Snapshot
		role     model.Role
		path     string
		want     Outcome
		location string
		from     string
	}{
		{
			name: "loading is pending even when a role is required",
			snap: session.Snapshot{IsLoading: true},
			role: model.RoleManager,
			path: "/team",
			want: Pending,
		},
		{
			name:     "unauthenticated goes to login and remembers the path",
			snap:     session.Snapshot{},
			path:     "/tasks",
			want:     RedirectLogin,
			location: LoginPath,
			from:     "/tasks",
		},
		{
			name: "authenticated without role requirement renders",
			snap: session.Snapshot{User: user, Profile: member, IsAuthenticated: true},
			path: "/calendar",
			want: Allow,
		},
		{
			name:     "role mismatch goes home",
			snap:     session.Snapshot{User: user, Profile: member, IsAuthenticated: true},
			role:     model.RoleManager,
			path:     "/team/manage",
			want:     RedirectHome,
			location: HomePath,
		},
		{
			name:     "missing profile fails a role requirement",
			snap:     session.Snapshot{User: user, IsAuthenticated: true},
			role:     model.RoleManager,
			path:     "/team/manage",
			want:     RedirectHome,
			location: HomePath,
		},
		{
			name: "matching role renders",
			snap: session.Snapshot{User: user, Profile: manager, IsAuthenticated: true},
			role: model.RoleManager,
			path: "/team/manage",
			want: Allow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Guard(tt.snap, tt.role, tt.path)
			if got.Outcome != tt.want {
				t.Fatalf("outcome = %s, want %s", got.Outcome, tt.want)
			}
			if got.Location != tt.location || got.From != tt.from {
				t.Fatalf("decision = %+v, want location %q from %q", got, tt.location, tt.from)
			}
		})
	}
}
