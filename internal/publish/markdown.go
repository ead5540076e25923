package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"nxttask/internal/model"
)

type RenderOptions struct {
	// Today is the YYYY-MM-DD date overdue is measured against.
	Today          string
	IncludeHistory bool
	// Location formats history timestamps. Defaults to UTC.
	Location *time.Location
}

const historyLayout = "2006-01-02 15:04"

func RenderTaskMarkdown(t model.Task, history []model.PriorityChangeLogEntry, opt RenderOptions) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	writeLn("# " + box + " " + strings.TrimSpace(t.Title))
	writeLn("")

	writeLn("## Meta")
	writeLn("")
	writeLn("- ID: " + t.ID)
	writeLn("- Priority: " + t.Priority.Label())
	if t.DueDate != "" {
		due := t.DueDate
		if opt.Today != "" && t.Overdue(opt.Today) {
			due += " (overdue)"
		}
		writeLn("- Due: " + due)
	}
	if strings.TrimSpace(t.AssignedTo) != "" {
		writeLn("- Assigned: " + strings.TrimSpace(t.AssignedTo))
	}
	if len(t.Tags) > 0 {
		writeLn("- Tags: " + strings.Join(t.Tags, ", "))
	}
	writeLn("- Created: " + t.CreatedAt.UTC().Format(time.RFC3339))
	writeLn("- Updated: " + t.UpdatedAt.UTC().Format(time.RFC3339))

	if desc := strings.TrimSpace(t.Description); desc != "" {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(desc)
	}

	if opt.IncludeHistory {
		loc := opt.Location
		if loc == nil {
			loc = time.UTC
		}
		writeLn("")
		writeLn("## Priority history")
		writeLn("")
		if len(history) == 0 {
			writeLn("_No priority changes._")
		}
		for _, e := range history {
			writeLn(fmt.Sprintf("- %s: %s → %s", e.CreatedAt.In(loc).Format(historyLayout),
				e.PreviousPriority.Label(), e.NewPriority.Label()))
		}
	}

	return buf.String()
}

// RenderIndexMarkdown lists tasks in three sections (overdue, open, completed),
// each task linking to its page under tasks/.
func RenderIndexMarkdown(title string, tasks []model.Task, opt RenderOptions) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + title)
	writeLn("")

	var overdue, open, done []model.Task
	for _, t := range tasks {
		switch {
		case t.Completed:
			done = append(done, t)
		case opt.Today != "" && t.Overdue(opt.Today):
			overdue = append(overdue, t)
		default:
			open = append(open, t)
		}
	}

	section := func(name string, list []model.Task) {
		if len(list) == 0 {
			return
		}
		writeLn(fmt.Sprintf("## %s (%d)", name, len(list)))
		writeLn("")
		for _, t := range list {
			renderIndexLine(&buf, t)
		}
		writeLn("")
	}
	section("Overdue", overdue)
	section("Open", open)
	section("Completed", done)

	if len(tasks) == 0 {
		writeLn("_No tasks._")
	}
	return buf.String()
}

func renderIndexLine(buf *bytes.Buffer, t model.Task) {
	meta := []string{t.Priority.Label()}
	if t.DueDate != "" {
		meta = append(meta, "due "+t.DueDate)
	}
	if t.AssignedTo != "" {
		meta = append(meta, "@"+t.AssignedTo)
	}
	for _, tag := range t.Tags {
		meta = append(meta, "#"+tag)
	}
	fmt.Fprintf(buf, "- [%s](tasks/%s.md) (%s)\n", strings.TrimSpace(t.Title), t.ID, strings.Join(meta, ", "))
}
