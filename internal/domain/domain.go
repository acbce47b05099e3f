package domain

const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Task is the durable record. Status is free text by convention; the three
// constants above are what the tool writes, anything else is tolerated.
// DueDate is a plain "YYYY-MM-DD" string compared lexically, empty means none.
type Task struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Priority      int    `json:"priority"`
	Status        string `json:"status"`
	DueDate       string `json:"due_date,omitempty"`
	Category      string `json:"category,omitempty"`
	CompletedDate string `json:"completed_date,omitempty"`
	LastModified  string `json:"last_modified"`
	CreatedAt     string `json:"created_at"`
}

type Event struct {
	ID        int64  `json:"id"`
	TS        string `json:"ts"`
	Type      string `json:"type"`
	TaskID    int64  `json:"task_id,omitempty"`
	SessionID string `json:"session_id"`
	Payload   string `json:"payload_json"`
}
