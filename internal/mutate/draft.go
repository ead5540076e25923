package mutate

import (
	"strings"

	"nxttask/internal/model"
)

// NewTask validates a draft and applies creation defaults: priority medium,
// due today, not completed. The id is left for the backend to assign.
func NewTask(d model.TaskDraft, today string) (model.Task, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return model.Task{}, ErrTitleRequired
	}

	priority := model.PriorityMedium
	if strings.TrimSpace(string(d.Priority)) != "" {
		p, ok := model.ParsePriority(string(d.Priority))
		if !ok || !p.Substantive() {
			return model.Task{}, ErrInvalidPriority
		}
		priority = p
	}

	due := strings.TrimSpace(d.DueDate)
	if due == "" {
		due = today
	}
	if !model.ValidDate(due) {
		return model.Task{}, ErrInvalidDueDate
	}

	return model.Task{
		Title:       title,
		Description: strings.TrimSpace(d.Description),
		Priority:    priority,
		DueDate:     due,
		Completed:   false,
		AssignedTo:  strings.TrimSpace(d.AssignedTo),
		Tags:        model.NormalizeTags(d.Tags),
	}, nil
}
