package mutate

import (
	"strings"

	"nxttask/internal/model"
)

// ApplyEdit validates an edited task against its pre-edit snapshot and keeps
// completion and priority consistent.
//
// When the edit flips the completion flag, the flag decides the priority (as
// in ToggleCompletion, preferring a substantive priority picked in the edit).
// Otherwise the priority decides: "completed" marks the task completed and any
// other value marks it open.
//
// Identity and server fields always come from prev.
func ApplyEdit(prev, edited model.Task, remembered model.Priority) (Result, error) {
	next := edited
	next.ID = prev.ID
	next.UserID = prev.UserID
	next.CreatedAt = prev.CreatedAt
	next.UpdatedAt = prev.UpdatedAt

	next.Title = strings.TrimSpace(next.Title)
	if next.Title == "" {
		return Result{}, ErrTitleRequired
	}
	next.Description = strings.TrimSpace(next.Description)
	next.AssignedTo = strings.TrimSpace(next.AssignedTo)
	next.DueDate = strings.TrimSpace(next.DueDate)
	if next.DueDate != "" && !model.ValidDate(next.DueDate) {
		return Result{}, ErrInvalidDueDate
	}
	next.Tags = model.NormalizeTags(next.Tags)

	p, ok := model.ParsePriority(string(next.Priority))
	if !ok {
		return Result{}, ErrInvalidPriority
	}
	next.Priority = p

	switch {
	case next.Completed && !prev.Completed:
		next.Priority = model.PriorityCompleted
	case !next.Completed && prev.Completed:
		if !next.Priority.Substantive() {
			next.Priority = reopenPriority(model.PriorityCompleted, remembered)
		}
	default:
		next.Completed = next.Priority == model.PriorityCompleted
	}

	return Result{Task: next, Changed: prev.Priority != next.Priority, From: prev.Priority, To: next.Priority}, nil
}
