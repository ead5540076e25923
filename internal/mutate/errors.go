package mutate

import "nxttask/internal/apperr"

var (
	ErrTitleRequired   = apperr.ValidationError{Field: "title", Message: "Title is required"}
	ErrInvalidPriority = apperr.ValidationError{Field: "priority", Message: "Priority must be low, medium or high"}
	ErrInvalidDueDate  = apperr.ValidationError{Field: "dueDate", Message: "Due date must be a date (YYYY-MM-DD)"}
)
