// Package publish writes tasks as a static Markdown tree: an index.md plus one
// page per task under tasks/.
package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"nxttask/internal/model"
)

// HistoryLister returns the priority changes of a task, newest first.
type HistoryLister interface {
	ListHistory(ctx context.Context, taskID string) ([]model.PriorityChangeLogEntry, error)
}

type WriteOptions struct {
	Title     string
	Overwrite bool
	// History is consulted only when RenderOptions.IncludeHistory is set.
	History HistoryLister
	RenderOptions
}

type WriteResult struct {
	Written []string `json:"written" yaml:"written"`
}

func WriteTasks(ctx context.Context, tasks []model.Task, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	if opt.IncludeHistory && opt.History == nil {
		return WriteResult{}, errors.New("history requested without a history source")
	}
	title := strings.TrimSpace(opt.Title)
	if title == "" {
		title = "Tasks"
	}

	tasksDir := filepath.Join(toDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	indexPath := filepath.Join(toDir, "index.md")
	if err := writeFile(indexPath, []byte(RenderIndexMarkdown(title, tasks, opt.RenderOptions)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}

	// Stop on the first error; pages already written stay on disk.
	written := []string{indexPath}
	for _, t := range tasks {
		var history []model.PriorityChangeLogEntry
		if opt.IncludeHistory {
			var err error
			if history, err = opt.History.ListHistory(ctx, t.ID); err != nil {
				return WriteResult{Written: written}, err
			}
		}
		p := filepath.Join(tasksDir, t.ID+".md")
		if err := writeFile(p, []byte(RenderTaskMarkdown(t, history, opt.RenderOptions)), opt.Overwrite); err != nil {
			return WriteResult{Written: written}, err
		}
		written = append(written, p)
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
