// Package taskdata is the task data-access layer: it maps tasks, priority log
// entries and profiles to backend rows and wraps every failure in
// apperr.DataAccessError.
package taskdata

import (
	"context"

	"nxttask/internal/apperr"
	"nxttask/internal/backend"
	"nxttask/internal/logging"
	"nxttask/internal/model"
)

type Repo struct {
	tables backend.Tables
	l      logging.Logger
}

func New(tables backend.Tables, l logging.Logger) *Repo {
	if l == nil {
		l = logging.Discard()
	}
	return &Repo{tables: tables, l: l}
}

// FetchAll returns every task, newest first.
func (r *Repo) FetchAll(ctx context.Context) ([]model.Task, error) {
	rows, err := r.tables.SelectTasks(ctx)
	if err != nil {
		r.l.Error("fetching tasks", "error", err)
		return nil, apperr.NewDataAccessError("tasks.select", err)
	}
	out := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromRow(row))
	}
	return out, nil
}

// Create persists t and returns the stored task, including server-assigned fields.
func (r *Repo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	row, err := r.tables.InsertTask(ctx, ToRow(t))
	if err != nil {
		r.l.Error("creating task", "title", t.Title, "error", err)
		return model.Task{}, apperr.NewDataAccessError("tasks.insert", err)
	}
	return FromRow(row), nil
}

// Update writes every mutable field of t, keyed by t.ID.
func (r *Repo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	row, err := r.tables.UpdateTask(ctx, ToRow(t))
	if err != nil {
		r.l.Error("updating task", "id", t.ID, "error", err)
		return model.Task{}, apperr.NewDataAccessError("tasks.update", err)
	}
	return FromRow(row), nil
}

func (r *Repo) LogPriorityChange(ctx context.Context, e model.PriorityChangeLogEntry) (model.PriorityChangeLogEntry, error) {
	row, err := r.tables.InsertPriorityLog(ctx, logToRow(e))
	if err != nil {
		return model.PriorityChangeLogEntry{}, apperr.NewDataAccessError("task_priority_logs.insert", err)
	}
	return logFromRow(row), nil
}

// ListHistory returns the priority changes of taskID, newest first. No rows is not an error.
func (r *Repo) ListHistory(ctx context.Context, taskID string) ([]model.PriorityChangeLogEntry, error) {
	rows, err := r.tables.SelectPriorityLogs(ctx, taskID)
	if err != nil {
		r.l.Error("fetching priority history", "taskId", taskID, "error", err)
		return nil, apperr.NewDataAccessError("task_priority_logs.select", err)
	}
	out := make([]model.PriorityChangeLogEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, logFromRow(row))
	}
	return out, nil
}

func (r *Repo) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	row, err := r.tables.SelectProfile(ctx, userID)
	if err != nil {
		return nil, apperr.NewDataAccessError("profiles.select", err)
	}
	p := profileFromRow(row)
	return &p, nil
}

func (r *Repo) Profiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.tables.SelectProfiles(ctx)
	if err != nil {
		return nil, apperr.NewDataAccessError("profiles.select", err)
	}
	out := make([]model.Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, profileFromRow(row))
	}
	return out, nil
}

func (r *Repo) SetRole(ctx context.Context, userID string, role model.Role) (*model.Profile, error) {
	row, err := r.tables.UpdateProfileRole(ctx, userID, string(role))
	if err != nil {
		return nil, apperr.NewDataAccessError("profiles.update", err)
	}
	p := profileFromRow(row)
	return &p, nil
}
