package tasks

import (
	"testing"

	"nxttask/internal/model"
)

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "1", Title: "Create PRD", Priority: model.PriorityHigh, DueDate: "2025-05-10", AssignedTo: "Alex Johnson", Tags: []string{"work", "urgent"}},
		{ID: "2", Title: "Review plan", Priority: model.PriorityMedium, DueDate: "2025-05-20", AssignedTo: "Sarah Johnson", Tags: []string{"work"}},
		{ID: "3", Title: "Slides", Priority: model.PriorityCompleted, Completed: true, DueDate: "2025-05-01", AssignedTo: "Alex Johnson", Tags: []string{"meeting"}},
		{ID: "4", Title: "Dev env", Priority: model.PriorityLow, DueDate: "2025-05-16", AssignedTo: "Alex Johnson", Tags: []string{"personal", "urgent"}},
		{ID: "5", Title: "No date", Priority: model.PriorityLow},
	}
}

func ids(list []model.Task) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, t.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		tags   []string
		today  string
		actor  string
		want   []string
	}{
		{name: "all", filter: FilterAll, today: "2025-05-17", want: []string{"1", "2", "3", "4", "5"}},
		{name: "all urgent", filter: FilterAll, tags: []string{"urgent"}, today: "2025-05-17", want: []string{"1", "4"}},
		{name: "tags match any", filter: FilterAll, tags: []string{"meeting", "personal"}, today: "2025-05-17", want: []string{"3", "4"}},
		{name: "tags normalized", filter: FilterAll, tags: []string{" URGENT "}, today: "2025-05-17", want: []string{"1", "4"}},
		{name: "overdue", filter: FilterOverdue, today: "2025-05-17", want: []string{"1", "4"}},
		{name: "overdue boundary is strict", filter: FilterOverdue, today: "2025-05-16", want: []string{"1"}},
		{name: "overdue before every due date", filter: FilterOverdue, today: "2025-01-01", want: []string{}},
		{name: "mine", filter: FilterMine, actor: "Alex Johnson", today: "2025-05-17", want: []string{"1", "4"}},
		{name: "mine is exact", filter: FilterMine, actor: "alex johnson", today: "2025-05-17", want: []string{}},
		{name: "mine without actor", filter: FilterMine, today: "2025-05-17", want: []string{}},
		{name: "completed", filter: FilterCompleted, today: "2025-05-17", want: []string{"3"}},
		{name: "mine and tag", filter: FilterMine, actor: "Alex Johnson", tags: []string{"personal"}, today: "2025-05-17", want: []string{"4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(sampleTasks(), tt.filter, tt.tags, tt.today, tt.actor))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	for _, in := range []string{"", "all", "Mine", "overdue", "completed"} {
		if _, ok := ParseFilter(in); !ok {
			t.Errorf("ParseFilter(%q) rejected", in)
		}
	}
	if _, ok := ParseFilter("archived"); ok {
		t.Errorf("unknown filter accepted")
	}
	if f, _ := ParseFilter(""); f != FilterAll {
		t.Errorf("empty filter = %q", f)
	}
}
