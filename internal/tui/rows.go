package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"nxttask/internal/model"
)

type taskItem struct {
	task    model.Task
	overdue bool
}

func (i taskItem) FilterValue() string { return i.task.Title }

// taskDelegate renders one task per line:
//
//	[x] Title ............. HIGH  due 2025-05-20  #work #urgent
type taskDelegate struct{}

func (d taskDelegate) Height() int                             { return 1 }
func (d taskDelegate) Spacing() int                            { return 0 }
func (d taskDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d taskDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(taskItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderTaskRow(it, m.Width(), index == m.Index()))
}

func renderTaskRow(it taskItem, width int, selected bool) string {
	if width < 8 {
		return ""
	}
	t := it.task

	box := "[ ] "
	if t.Completed {
		box = "[x] "
	}

	var meta []string
	meta = append(meta, stylePriority(t.Priority).Render(strings.ToUpper(t.Priority.Label())))
	if t.DueDate != "" {
		due := "due " + t.DueDate
		if it.overdue {
			due = lipgloss.NewStyle().Foreground(colorError).Render("overdue " + t.DueDate)
		} else {
			due = styleMuted().Render(due)
		}
		meta = append(meta, due)
	}
	if t.AssignedTo != "" {
		meta = append(meta, styleMuted().Render("@"+t.AssignedTo))
	}
	if len(t.Tags) > 0 {
		meta = append(meta, styleMuted().Render("#"+strings.Join(t.Tags, " #")))
	}
	right := strings.Join(meta, "  ")

	title := t.Title
	if t.Completed {
		title = styleMuted().Strikethrough(true).Render(title)
	}
	left := box + title
	line := joinLeftRight(left, right, width)

	if selected {
		return styleSelected().Render(padRight(xansi.Strip(line), width))
	}
	return line
}

// joinLeftRight places right flush with width, cutting left first when the
// line does not fit.
func joinLeftRight(left, right string, width int) string {
	leftW := xansi.StringWidth(left)
	rightW := xansi.StringWidth(right)
	if rightW+2 > width {
		right = ""
		rightW = 0
	}
	avail := width - rightW
	if rightW > 0 {
		avail -= 2
	}
	if leftW > avail {
		left = xansi.Truncate(left, avail, "…")
		leftW = xansi.StringWidth(left)
	}
	if rightW == 0 {
		return left
	}
	return left + strings.Repeat(" ", width-leftW-rightW) + right
}

func padRight(s string, width int) string {
	if w := xansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return xansi.Truncate(s, width, "")
}
