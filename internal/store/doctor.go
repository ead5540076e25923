package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nxttask/internal/model"
)

var ErrDoctorIssuesFound = errors.New("doctor found errors")

type DoctorIssueLevel string

const (
	DoctorIssueLevelError DoctorIssueLevel = "error"
	DoctorIssueLevelWarn  DoctorIssueLevel = "warn"
)

type DoctorIssue struct {
	Level   DoctorIssueLevel `json:"level" yaml:"level"`
	Code    string           `json:"code" yaml:"code"`
	Message string           `json:"message" yaml:"message"`
	Table   string           `json:"table,omitempty" yaml:"table,omitempty"`
	RowID   string           `json:"rowId,omitempty" yaml:"rowId,omitempty"`
}

type DoctorReport struct {
	Issues []DoctorIssue `json:"issues" yaml:"issues"`
}

func (r DoctorReport) HasErrors() bool {
	for _, it := range r.Issues {
		if it.Level == DoctorIssueLevelError {
			return true
		}
	}
	return false
}

// Doctor checks the database file and the consistency rules the application
// relies on but SQLite cannot enforce: one profile per user, completion
// matching the "completed" priority, and well-formed due dates.
func (db *DB) Doctor(ctx context.Context) (DoctorReport, error) {
	var issues []DoctorIssue
	var add addIssue = func(level DoctorIssueLevel, code, table, rowID, msg string) {
		issues = append(issues, DoctorIssue{Level: level, Code: code, Message: msg, Table: table, RowID: rowID})
	}

	checks := []func(context.Context, addIssue) error{
		db.checkIntegrity,
		db.checkForeignKeys,
		db.checkProfiles,
		db.checkTasks,
		db.checkSessions,
	}
	for _, check := range checks {
		if err := check(ctx, add); err != nil {
			return DoctorReport{}, err
		}
	}
	if issues == nil {
		issues = []DoctorIssue{}
	}
	return DoctorReport{Issues: issues}, nil
}

type addIssue = func(level DoctorIssueLevel, code, table, rowID, msg string)

func (db *DB) checkIntegrity(ctx context.Context, add addIssue) error {
	rows, err := db.conn.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return err
		}
		if msg != "ok" {
			add(DoctorIssueLevelError, "integrity", "", "", msg)
		}
	}
	return rows.Err()
}

func (db *DB) checkForeignKeys(ctx context.Context, add addIssue) error {
	rows, err := db.conn.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var (
			table, parent string
			rowID         sql.NullInt64
			fkid          int
		)
		if err := rows.Scan(&table, &rowID, &parent, &fkid); err != nil {
			return err
		}
		id := ""
		if rowID.Valid {
			id = fmt.Sprint(rowID.Int64)
		}
		add(DoctorIssueLevelError, "foreign_key", table, id, "row references a missing "+parent+" row")
	}
	return rows.Err()
}

func (db *DB) checkProfiles(ctx context.Context, add addIssue) error {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT u.id, u.email FROM users u LEFT JOIN profiles p ON p.id = u.id WHERE p.id IS NULL ORDER BY u.email")
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return err
		}
		add(DoctorIssueLevelWarn, "profile_missing", "users", id, "user "+email+" has no profile; name and role fall back to defaults")
	}
	return rows.Err()
}

func (db *DB) checkTasks(ctx context.Context, add addIssue) error {
	rows, err := db.conn.QueryContext(ctx, "SELECT id, priority, completed, due_date FROM tasks ORDER BY created_at")
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var (
			id, priority string
			completed    bool
			due          sql.NullString
		)
		if err := rows.Scan(&id, &priority, &completed, &due); err != nil {
			return err
		}
		if completed != (model.Priority(priority) == model.PriorityCompleted) {
			add(DoctorIssueLevelWarn, "task_completion_mismatch", "tasks", id,
				fmt.Sprintf("completed=%t with priority %q", completed, priority))
		}
		if due.Valid && due.String != "" && !model.ValidDate(due.String) {
			add(DoctorIssueLevelWarn, "task_due_date_invalid", "tasks", id, fmt.Sprintf("due date %q is not YYYY-MM-DD", due.String))
		}
	}
	return rows.Err()
}

func (db *DB) checkSessions(ctx context.Context, add addIssue) error {
	var n int
	now := db.timestamp()
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE expires_at < ? OR revoked_at IS NOT NULL", now).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		add(DoctorIssueLevelWarn, "sessions_stale", "sessions", "",
			fmt.Sprintf("%d expired or revoked sessions; `nxttask serve` prunes them hourly", n))
	}
	return nil
}
