package store

import (
	"context"
	"database/sql"
	"errors"

	"nxttask/internal/backend"
)

type priorityLogEntity struct {
	ID               string
	TaskID           string
	TaskTitle        string
	PreviousPriority string
	NewPriority      string
	CreatedAt        string
}

func extractPriorityLog(s scannable) (backend.PriorityLogRow, error) {
	var e priorityLogEntity
	if err := s.Scan(&e.ID, &e.TaskID, &e.TaskTitle, &e.PreviousPriority, &e.NewPriority, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return backend.PriorityLogRow{}, ErrNotFound
		}
		return backend.PriorityLogRow{}, err
	}
	return backend.PriorityLogRow(e), nil
}

func (db *DB) insertPriorityLog(ctx context.Context, row backend.PriorityLogRow) (backend.PriorityLogRow, error) {
	row.ID = newID()
	row.CreatedAt = db.timestamp()
	query := "INSERT INTO task_priority_logs (id, task_id, task_title, previous_priority, new_priority, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	args := []any{row.ID, row.TaskID, row.TaskTitle, row.PreviousPriority, row.NewPriority, row.CreatedAt}
	db.l.Debug("logging priority change", "query", query, "args", args)
	if _, err := db.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return backend.PriorityLogRow{}, err
	}
	return row, nil
}

func (db *DB) selectPriorityLogs(ctx context.Context, taskID string) ([]backend.PriorityLogRow, error) {
	query := "SELECT id, task_id, task_title, previous_priority, new_priority, created_at FROM task_priority_logs WHERE task_id = ? ORDER BY created_at DESC, rowid DESC"
	db.l.Debug("selecting priority logs", "query", query, "taskId", taskID)
	rows, err := db.dbGetter(ctx).QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []backend.PriorityLogRow{}
	for rows.Next() {
		row, err := extractPriorityLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
