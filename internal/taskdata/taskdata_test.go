package taskdata

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"nxttask/internal/apperr"
	"nxttask/internal/backend"
	"nxttask/internal/backend/backendtest"
	"nxttask/internal/model"
)

func TestRowMappingRoundTrip(t *testing.T) {
	tests := []model.Task{
		{
			ID:          "t-1",
			Title:       "Create PRD for new mobile app",
			Description: "Draft the initial product requirements document",
			Priority:    model.PriorityHigh,
			DueDate:     "2025-05-18",
			AssignedTo:  "Alex Johnson",
			Tags:        []string{"work", "urgent"},
		},
		{
			ID:       "t-2",
			Title:    "No optional fields",
			Priority: model.PriorityMedium,
			Tags:     []string{},
		},
	}
	for _, in := range tests {
		row := ToRow(in)
		got := FromRow(row)
		if !reflect.DeepEqual(got, in) {
			t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, in)
		}
	}
}

func TestToRowUsesNullForEmptyText(t *testing.T) {
	row := ToRow(model.Task{Title: "x", Priority: model.PriorityLow})
	if row.Description != nil || row.DueDate != nil || row.AssignedTo != nil {
		t.Fatalf("expected NULL optional columns, got %+v", row)
	}
	if row.Tags == nil {
		t.Fatalf("tags should be an empty list, not NULL")
	}
}

func TestFromRowParsesServerFields(t *testing.T) {
	uid := "user-1"
	got := FromRow(backend.TaskRow{ID: "t", Title: "x", Priority: "low", CreatedAt: "2025-05-17T09:00:01.000000Z", UserID: &uid})
	if got.CreatedAt.IsZero() || got.UserID != "user-1" {
		t.Fatalf("server fields not mapped: %+v", got)
	}
}

func TestFetchAllNewestFirst(t *testing.T) {
	svc := backendtest.NewService()
	svc.SeedTask(backend.TaskRow{Title: "older", Priority: "low"})
	svc.SeedTask(backend.TaskRow{Title: "newer", Priority: "high"})
	repo := New(svc.NewClient(), nil)

	tasks, err := repo.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Title != "newer" || tasks[1].Title != "older" {
		t.Fatalf("unexpected order: %+v", tasks)
	}
}

func TestCreateReturnsPersistedTask(t *testing.T) {
	svc := backendtest.NewService()
	repo := New(svc.NewClient(), nil)

	got, err := repo.Create(context.Background(), model.Task{Title: "Draft proposal", Priority: model.PriorityMedium, DueDate: "2025-05-17"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Fatalf("expected server-assigned fields, got %+v", got)
	}
}

func TestErrorsWrapBackendMessage(t *testing.T) {
	svc := backendtest.NewService()
	repo := New(svc.NewClient(), nil)
	ctx := context.Background()

	svc.FailOn(backendtest.OpSelectTasks, errors.New("permission denied for table tasks"))
	_, err := repo.FetchAll(ctx)
	var dataErr apperr.DataAccessError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected DataAccessError, got %T %v", err, err)
	}
	if dataErr.Error() != "permission denied for table tasks" {
		t.Fatalf("message = %q", dataErr.Error())
	}

	_, err = repo.Update(ctx, model.Task{ID: "missing", Title: "x", Priority: model.PriorityLow})
	if !errors.As(err, &dataErr) {
		t.Fatalf("update of missing row should be a DataAccessError, got %v", err)
	}
}

func TestListHistoryEmptyIsNotError(t *testing.T) {
	svc := backendtest.NewService()
	repo := New(svc.NewClient(), nil)
	entries, err := repo.ListHistory(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", entries)
	}
}

func TestListHistoryNewestFirst(t *testing.T) {
	svc := backendtest.NewService()
	repo := New(svc.NewClient(), nil)
	ctx := context.Background()
	for _, e := range []model.PriorityChangeLogEntry{
		{TaskID: "t-1", TaskTitle: "A", PreviousPriority: model.PriorityLow, NewPriority: model.PriorityHigh},
		{TaskID: "t-2", TaskTitle: "B", PreviousPriority: model.PriorityLow, NewPriority: model.PriorityMedium},
		{TaskID: "t-1", TaskTitle: "A", PreviousPriority: model.PriorityHigh, NewPriority: model.PriorityCompleted},
	} {
		if _, err := repo.LogPriorityChange(ctx, e); err != nil {
			t.Fatalf("LogPriorityChange: %v", err)
		}
	}
	entries, err := repo.ListHistory(ctx, "t-1")
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].NewPriority != model.PriorityCompleted || entries[1].NewPriority != model.PriorityHigh {
		t.Fatalf("expected newest first, got %+v", entries)
	}
}

func TestProfileRoleFallback(t *testing.T) {
	p := profileFromRow(backend.ProfileRow{ID: "u", Email: "a@b.c", Role: "admin"})
	if p.Role != model.RoleTeamMember {
		t.Fatalf("unknown role should map to team_member, got %q", p.Role)
	}
}
