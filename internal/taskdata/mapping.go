package taskdata

import (
	"strings"
	"time"

	"nxttask/internal/backend"
	"nxttask/internal/model"
)

// ToRow maps a task to its wire row. Empty optional text becomes NULL.
// Server-populated columns (created_at, updated_at, user_id) are left for the backend.
func ToRow(t model.Task) backend.TaskRow {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return backend.TaskRow{
		ID:          t.ID,
		Title:       t.Title,
		Description: nullString(t.Description),
		Priority:    string(t.Priority),
		DueDate:     nullString(t.DueDate),
		Completed:   t.Completed,
		AssignedTo:  nullString(t.AssignedTo),
		Tags:        tags,
	}
}

// FromRow maps a wire row to a task. NULL text becomes the empty string.
func FromRow(r backend.TaskRow) model.Task {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return model.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: deref(r.Description),
		Priority:    model.Priority(r.Priority),
		DueDate:     deref(r.DueDate),
		Completed:   r.Completed,
		AssignedTo:  deref(r.AssignedTo),
		Tags:        tags,
		UserID:      deref(r.UserID),
		CreatedAt:   parseTimestamp(r.CreatedAt),
		UpdatedAt:   parseTimestamp(r.UpdatedAt),
	}
}

func logFromRow(r backend.PriorityLogRow) model.PriorityChangeLogEntry {
	return model.PriorityChangeLogEntry{
		ID:               r.ID,
		TaskID:           r.TaskID,
		TaskTitle:        r.TaskTitle,
		PreviousPriority: model.Priority(r.PreviousPriority),
		NewPriority:      model.Priority(r.NewPriority),
		CreatedAt:        parseTimestamp(r.CreatedAt),
	}
}

func logToRow(e model.PriorityChangeLogEntry) backend.PriorityLogRow {
	return backend.PriorityLogRow{
		TaskID:           e.TaskID,
		TaskTitle:        e.TaskTitle,
		PreviousPriority: string(e.PreviousPriority),
		NewPriority:      string(e.NewPriority),
	}
}

func profileFromRow(r backend.ProfileRow) model.Profile {
	role, ok := model.ParseRole(r.Role)
	if !ok {
		role = model.RoleTeamMember
	}
	return model.Profile{
		ID:        r.ID,
		Email:     r.Email,
		FullName:  r.FullName,
		AvatarURL: r.AvatarURL,
		Role:      role,
		CreatedAt: parseTimestamp(r.CreatedAt),
		UpdatedAt: parseTimestamp(r.UpdatedAt),
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{backend.TimestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
