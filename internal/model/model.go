package model

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityCompleted Priority = "completed"
)

// ParsePriority accepts the four stored values, case-insensitively.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCompleted:
		return p, true
	default:
		return "", false
	}
}

// Substantive reports whether p is a working priority (low, medium or high).
func (p Priority) Substantive() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func (p Priority) Label() string {
	s := string(p)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type Role string

const (
	RoleManager    Role = "manager"
	RoleTeamMember Role = "team_member"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleManager, RoleTeamMember:
		return r, true
	default:
		return "", false
	}
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	DueDate     string    `json:"dueDate"`
	Completed   bool      `json:"completed"`
	AssignedTo  string    `json:"assignedTo,omitempty"`
	Tags        []string  `json:"tags"`
	UserID      string    `json:"userId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasAnyTag reports whether t carries at least one of tags.
func (t Task) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range t.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Overdue reports whether an open task is due strictly before today (YYYY-MM-DD).
func (t Task) Overdue(today string) bool {
	return !t.Completed && t.DueDate != "" && t.DueDate < today
}

// TaskDraft is the payload of the create form. Empty fields take defaults.
type TaskDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	AssignedTo  string   `json:"assignedTo,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type PriorityChangeLogEntry struct {
	ID               string    `json:"id"`
	TaskID           string    `json:"taskId"`
	TaskTitle        string    `json:"taskTitle"`
	PreviousPriority Priority  `json:"previousPriority"`
	NewPriority      Priority  `json:"newPriority"`
	CreatedAt        time.Time `json:"createdAt"`
}

// User is the authenticated identity issued by the backend.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"fullName,omitempty"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayName is the full name when set, else the email.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != nil && strings.TrimSpace(*p.FullName) != "" {
		return strings.TrimSpace(*p.FullName)
	}
	return p.Email
}

// Initials is used for avatars when no avatar url is set.
func (p *Profile) Initials() string {
	name := p.DisplayName()
	out := make([]rune, 0, 2)
	for _, w := range strings.Fields(name) {
		out = append(out, []rune(strings.ToUpper(w))[0])
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}
