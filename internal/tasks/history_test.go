package tasks

import (
	"context"
	"errors"
	"testing"

	"nxttask/internal/backend/backendtest"
	"nxttask/internal/model"
)

func TestHistoryViewerInertWhenClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, _ := f.orch.Create(ctx, model.TaskDraft{Title: "Draft proposal"})
	v := NewHistoryViewer(f.repo)

	if _, active, err := v.Entries(ctx); active || err != nil {
		t.Fatalf("closed viewer must be inert")
	}
	v.Open("")
	if _, active, _ := v.Entries(ctx); active {
		t.Fatalf("viewer without a task must be inert")
	}
	v.Open(created.ID)
	v.Close()
	if _, active, _ := v.Entries(ctx); active {
		t.Fatalf("closed viewer must be inert")
	}
	if n := f.svc.Calls(backendtest.OpSelectLogs); n != 0 {
		t.Fatalf("expected no history queries, got %d", n)
	}
}

func TestHistoryViewerNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, _ := f.orch.Create(ctx, model.TaskDraft{Title: "Draft proposal"})
	v := NewHistoryViewer(f.repo)
	v.Open(created.ID)

	entries, active, err := v.Entries(ctx)
	if !active || err != nil {
		t.Fatalf("Entries: active=%v err=%v", active, err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", entries)
	}

	if _, _, err := f.orch.ToggleCompletion(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	f.orch.Wait()
	if _, _, err := f.orch.ToggleCompletion(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	f.orch.Wait()

	entries, _, err = v.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].NewPriority != model.PriorityMedium || entries[1].NewPriority != model.PriorityCompleted {
		t.Fatalf("expected newest first, got %+v", entries)
	}
}

func TestHistoryViewerError(t *testing.T) {
	f := newFixture(t)
	f.svc.FailOn(backendtest.OpSelectLogs, errors.New("permission denied"))
	v := NewHistoryViewer(f.repo)
	v.Open("task-1")
	if _, active, err := v.Entries(context.Background()); !active || err == nil {
		t.Fatalf("expected active query error, got active=%v err=%v", active, err)
	}
}
