package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"nxttask/internal/model"
)

func TestJoinLeftRight(t *testing.T) {
	cases := []struct {
		name        string
		left, right string
		width       int
		want        string
	}{
		{"fits", "abc", "xy", 10, "abc     xy"},
		{"cuts left", "abcdefghij", "xy", 8, "abc…  xy"},
		{"drops right when too wide", "abc", "0123456789", 8, "abc"},
		{"no right", "abc", "", 8, "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := joinLeftRight(tc.left, tc.right, tc.width)
			if got != tc.want {
				t.Fatalf("joinLeftRight(%q, %q, %d) = %q, want %q", tc.left, tc.right, tc.width, got, tc.want)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Fatalf("padRight = %q", got)
	}
	if got := padRight("abcdef", 4); got != "abcd" {
		t.Fatalf("padRight truncation = %q", got)
	}
}

func TestRenderTaskRow(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	task := model.Task{
		ID:         "t1",
		Title:      "Prepare presentation",
		Priority:   model.PriorityHigh,
		DueDate:    "2025-05-10",
		AssignedTo: "Sam",
		Tags:       []string{"work", "urgent"},
	}

	row := xansi.Strip(renderTaskRow(taskItem{task: task, overdue: true}, 90, false))
	if xansi.StringWidth(row) != 90 {
		t.Fatalf("expected a full-width row, got %d: %q", xansi.StringWidth(row), row)
	}
	for _, want := range []string{"[ ] Prepare presentation", "HIGH", "overdue 2025-05-10", "@Sam", "#work #urgent"} {
		if !strings.Contains(row, want) {
			t.Fatalf("row missing %q: %q", want, row)
		}
	}

	task.Completed = true
	task.Priority = model.PriorityCompleted
	row = xansi.Strip(renderTaskRow(taskItem{task: task}, 90, true))
	if !strings.HasPrefix(row, "[x] Prepare presentation") || !strings.Contains(row, "COMPLETED") {
		t.Fatalf("unexpected completed row %q", row)
	}

	if got := renderTaskRow(taskItem{task: task}, 4, false); got != "" {
		t.Fatalf("expected nothing for a tiny width, got %q", got)
	}
}
