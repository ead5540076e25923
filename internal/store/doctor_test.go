package store

import (
	"context"
	"testing"
	"time"

	"nxttask/internal/backend"
)

func TestDoctorCleanDatabase(t *testing.T) {
	db := openTestDB(t, Options{})
	c := signedInClient(t, db, "alex@example.com")
	if _, err := c.InsertTask(context.Background(), backend.TaskRow{Title: "Fine", Priority: "low", DueDate: ptr("2025-05-20")}); err != nil {
		t.Fatalf("InsertTask: %v", err)
	}

	report, err := db.Doctor(context.Background())
	if err != nil {
		t.Fatalf("Doctor: %v", err)
	}
	if len(report.Issues) != 0 || report.HasErrors() {
		t.Fatalf("expected no issues, got %+v", report.Issues)
	}
}

func TestDoctorReportsInconsistentRows(t *testing.T) {
	db := openTestDB(t, Options{})
	ctx := context.Background()
	c := signedInClient(t, db, "alex@example.com")
	row, err := c.InsertTask(ctx, backend.TaskRow{Title: "Odd", Priority: "high"})
	if err != nil {
		t.Fatalf("InsertTask: %v", err)
	}

	if _, err := db.conn.ExecContext(ctx, "UPDATE tasks SET completed = 1, due_date = 'soon' WHERE id = ?", row.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES ('u-orphan', 'ghost@example.com', 'x', ?)", db.timestamp()); err != nil {
		t.Fatal(err)
	}
	if err := c.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	report, err := db.Doctor(ctx)
	if err != nil {
		t.Fatalf("Doctor: %v", err)
	}
	codes := map[string]DoctorIssue{}
	for _, it := range report.Issues {
		codes[it.Code] = it
	}
	for _, want := range []string{"task_completion_mismatch", "task_due_date_invalid", "profile_missing", "sessions_stale"} {
		if _, ok := codes[want]; !ok {
			t.Fatalf("expected a %s issue, got %+v", want, report.Issues)
		}
	}
	if got := codes["profile_missing"].RowID; got != "u-orphan" {
		t.Fatalf("expected the orphan user id, got %q", got)
	}
	if report.HasErrors() {
		t.Fatalf("consistency findings are warnings, got %+v", report.Issues)
	}

	if _, err := db.PruneSessions(ctx, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("PruneSessions: %v", err)
	}
	report, err = db.Doctor(ctx)
	if err != nil {
		t.Fatalf("Doctor: %v", err)
	}
	for _, it := range report.Issues {
		if it.Code == "sessions_stale" {
			t.Fatalf("expected pruned sessions to clear the warning")
		}
	}
}
