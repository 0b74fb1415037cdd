package models

// DefaultTaskStatus is applied when a task is created without a status.
const DefaultTaskStatus = "To Do"

// User is a registered account. Password holds the bcrypt hash, never plaintext.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// Task represents a single tracked work item.
type Task struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Assignee    string  `json:"assignee"`
}

// Comment is a note attached to a task by an authenticated user.
type Comment struct {
	ID      int64  `json:"id"`
	TaskID  int64  `json:"task_id"`
	Comment string `json:"comment"`
	Author  string `json:"author"`
}
