package tasks

import (
	"strings"

	"nxttask/internal/model"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterMine      Filter = "mine"
	FilterOverdue   Filter = "overdue"
	FilterCompleted Filter = "completed"
)

var Filters = []Filter{FilterAll, FilterMine, FilterOverdue, FilterCompleted}

// ParseFilter maps a predicate name to a Filter; empty means all.
func ParseFilter(s string) (Filter, bool) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, true
	case FilterAll, FilterMine, FilterOverdue, FilterCompleted:
		return f, true
	default:
		return "", false
	}
}

func (f Filter) Label() string {
	switch f {
	case FilterMine:
		return "My Tasks"
	case FilterOverdue:
		return "Overdue"
	case FilterCompleted:
		return "Completed"
	default:
		return "All Tasks"
	}
}

// Apply keeps the tasks matching f, in order. A non-empty tags narrows the
// result to tasks carrying at least one of them.
//
//   - all: every task
//   - mine: open tasks whose assignee equals actor exactly
//   - overdue: open tasks due strictly before today (YYYY-MM-DD)
//   - completed: completed tasks
func Apply(list []model.Task, f Filter, tags []string, today, actor string) []model.Task {
	tags = model.NormalizeTags(tags)
	out := make([]model.Task, 0, len(list))
	for _, t := range list {
		if !matches(t, f, today, actor) {
			continue
		}
		if len(tags) > 0 && !t.HasAnyTag(tags) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t model.Task, f Filter, today, actor string) bool {
	switch f {
	case FilterMine:
		return !t.Completed && actor != "" && t.AssignedTo == actor
	case FilterOverdue:
		return t.Overdue(today)
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}
