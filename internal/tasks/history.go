package tasks

import (
	"context"
	"sync"

	"nxttask/internal/model"
)

// HistoryEmptyText is shown when a task has no recorded priority changes.
const HistoryEmptyText = "No priority change history available"

// HistoryTimeLayout formats entry timestamps.
const HistoryTimeLayout = "Jan 2, 2006 at 3:04 PM"

// HistoryLister reads the audit log of one task, newest first.
type HistoryLister interface {
	ListHistory(ctx context.Context, taskID string) ([]model.PriorityChangeLogEntry, error)
}

// HistoryViewer is the read side of the priority audit log for one dialog. It
// only queries while open with a task selected.
type HistoryViewer struct {
	repo HistoryLister

	mu     sync.Mutex
	open   bool
	taskID string
}

// NewHistoryViewer returns a closed viewer.
func NewHistoryViewer(repo HistoryLister) *HistoryViewer {
	return &HistoryViewer{repo: repo}
}

// Open selects taskID and enables queries.
func (v *HistoryViewer) Open(taskID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.open = true
	v.taskID = taskID
}

// Close disables queries and clears the selection.
func (v *HistoryViewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.open = false
	v.taskID = ""
}

// Active reports whether Entries would query the backend.
func (v *HistoryViewer) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open && v.taskID != ""
}

// Entries returns the selected task's changes, newest first. active is false
// when the viewer is closed or has no task; no query is issued then.
func (v *HistoryViewer) Entries(ctx context.Context) (entries []model.PriorityChangeLogEntry, active bool, err error) {
	v.mu.Lock()
	open, id := v.open, v.taskID
	v.mu.Unlock()
	if !open || id == "" {
		return nil, false, nil
	}
	entries, err = v.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, true, err
	}
	return entries, true, nil
}
