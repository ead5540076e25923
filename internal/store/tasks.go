package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"nxttask/internal/backend"
)

const selectTasks = "SELECT id, title, description, priority, due_date, completed, assigned_to, tags, user_id, created_at, updated_at FROM tasks"

// errNoRow is the hosted row API's message for a single-row call that matched nothing.
var errNoRow = errors.New("JSON object requested, multiple (or no) rows returned")

type taskEntity struct {
	ID          string
	Title       string
	Description sql.NullString
	Priority    string
	DueDate     sql.NullString
	Completed   bool
	AssignedTo  sql.NullString
	Tags        string
	UserID      sql.NullString
	CreatedAt   string
	UpdatedAt   string
}

func extractTask(s scannable) (backend.TaskRow, error) {
	var e taskEntity
	if err := s.Scan(&e.ID, &e.Title, &e.Description, &e.Priority, &e.DueDate, &e.Completed,
		&e.AssignedTo, &e.Tags, &e.UserID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return backend.TaskRow{}, ErrNotFound
		}
		return backend.TaskRow{}, err
	}
	return mapToTaskRow(e), nil
}

func extractTasks(rows *sql.Rows) ([]backend.TaskRow, error) {
	defer rows.Close() //nolint:errcheck
	out := []backend.TaskRow{}
	for rows.Next() {
		row, err := extractTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func mapToTaskRow(e taskEntity) backend.TaskRow {
	tags := []string{}
	if e.Tags != "" {
		_ = json.Unmarshal([]byte(e.Tags), &tags)
	}
	return backend.TaskRow{
		ID:          e.ID,
		Title:       e.Title,
		Description: stringPtr(e.Description),
		Priority:    e.Priority,
		DueDate:     stringPtr(e.DueDate),
		Completed:   e.Completed,
		AssignedTo:  stringPtr(e.AssignedTo),
		Tags:        tags,
		UserID:      stringPtr(e.UserID),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func mapToTaskEntity(row backend.TaskRow) (taskEntity, error) {
	tags := row.Tags
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return taskEntity{}, err
	}
	return taskEntity{
		ID:          row.ID,
		Title:       row.Title,
		Description: nullString(row.Description),
		Priority:    row.Priority,
		DueDate:     nullString(row.DueDate),
		Completed:   row.Completed,
		AssignedTo:  nullString(row.AssignedTo),
		Tags:        string(b),
		UserID:      nullString(row.UserID),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (db *DB) selectTasks(ctx context.Context) ([]backend.TaskRow, error) {
	query := selectTasks + " ORDER BY created_at DESC, rowid DESC"
	db.l.Debug("selecting tasks", "query", query)
	rows, err := db.dbGetter(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return extractTasks(rows)
}

func (db *DB) taskByID(ctx context.Context, id string) (backend.TaskRow, error) {
	return extractTask(db.dbGetter(ctx).QueryRowContext(ctx, selectTasks+" WHERE id = ?", id))
}

// insertTask stores row owned by userID, assigning id and timestamps when empty.
func (db *DB) insertTask(ctx context.Context, row backend.TaskRow, userID string) (backend.TaskRow, error) {
	if row.ID == "" {
		row.ID = newID()
	}
	row.CreatedAt = db.timestamp()
	row.UpdatedAt = row.CreatedAt
	row.UserID = &userID

	e, err := mapToTaskEntity(row)
	if err != nil {
		return backend.TaskRow{}, err
	}
	query := "INSERT INTO tasks (id, title, description, priority, due_date, completed, assigned_to, tags, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []any{e.ID, e.Title, e.Description, e.Priority, e.DueDate, e.Completed, e.AssignedTo, e.Tags, e.UserID, e.CreatedAt, e.UpdatedAt}
	db.l.Debug("creating task", "query", query, "args", args)
	if _, err := db.dbGetter(ctx).ExecContext(ctx, query, args...); err != nil {
		return backend.TaskRow{}, err
	}
	return db.taskByID(ctx, row.ID)
}

// updateTask writes every mutable column of row. created_at and user_id are kept.
func (db *DB) updateTask(ctx context.Context, row backend.TaskRow) (backend.TaskRow, error) {
	var out backend.TaskRow
	err := db.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		row.UpdatedAt = db.timestamp()
		e, err := mapToTaskEntity(row)
		if err != nil {
			return err
		}
		query := "UPDATE tasks SET title = ?, description = ?, priority = ?, due_date = ?, completed = ?, assigned_to = ?, tags = ?, updated_at = ? WHERE id = ?"
		args := []any{e.Title, e.Description, e.Priority, e.DueDate, e.Completed, e.AssignedTo, e.Tags, e.UpdatedAt, e.ID}
		db.l.Debug("updating task", "query", query, "args", args)
		res, err := db.dbGetter(ctx).ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errNoRow
		}
		out, err = db.taskByID(ctx, row.ID)
		return err
	})
	return out, err
}
