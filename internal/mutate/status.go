package mutate

import "nxttask/internal/model"

// Result is a task after a transition, with the priority change it implies.
type Result struct {
	Task model.Task
	// Changed is true when the priority value differs from before.
	Changed bool
	From    model.Priority
	To      model.Priority
}

// ToggleCompletion flips the completion flag.
//
// Completing sets the priority to "completed". Reopening restores remembered
// (the priority held before completion) when it is low/medium/high, else the
// current priority when it is substantive, else "medium".
func ToggleCompletion(t model.Task, remembered model.Priority) Result {
	prev := t.Priority
	next := t
	next.Completed = !t.Completed
	if next.Completed {
		next.Priority = model.PriorityCompleted
	} else {
		next.Priority = reopenPriority(t.Priority, remembered)
	}
	return Result{Task: next, Changed: prev != next.Priority, From: prev, To: next.Priority}
}

func reopenPriority(current, remembered model.Priority) model.Priority {
	if remembered.Substantive() {
		return remembered
	}
	if current.Substantive() {
		return current
	}
	return model.PriorityMedium
}
