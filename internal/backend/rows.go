package backend

// Wire rows use the tables' snake_case column names; optional text is nullable.

type TaskRow struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Priority    string   `json:"priority"`
	DueDate     *string  `json:"due_date"`
	Completed   bool     `json:"completed"`
	AssignedTo  *string  `json:"assigned_to"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	UserID      *string  `json:"user_id"`
}

type PriorityLogRow struct {
	ID               string `json:"id,omitempty"`
	TaskID           string `json:"task_id"`
	TaskTitle        string `json:"task_title"`
	PreviousPriority string `json:"previous_priority"`
	NewPriority      string `json:"new_priority"`
	CreatedAt        string `json:"created_at,omitempty"`
}

type ProfileRow struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	Role      string  `json:"role"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// TimestampLayout is the layout of created_at / updated_at values.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"
