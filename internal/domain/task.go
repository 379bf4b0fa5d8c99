package domain

import "time"

// Task is a single tracked item.
type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TaskRef is the compact task shape carried in tool results.
type TaskRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Ref returns the compact reference for t.
func (t *Task) Ref() TaskRef {
	return TaskRef{ID: t.ID, Title: t.Title}
}

// TaskDetail is an append-only markdown note attached to a task.
type TaskDetail struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DetailRef is the compact detail shape carried in tool results.
type DetailRef struct {
	ID     string `json:"id"`
	TaskID string `json:"taskId"`
}

// Ref returns the compact reference for d.
func (d *TaskDetail) Ref() DetailRef {
	return DetailRef{ID: d.ID, TaskID: d.TaskID}
}

// TaskEvent is broadcast to live listeners whenever the task list changes.
type TaskEvent struct {
	Type   TaskEventType `json:"type"`
	Ts     int64         `json:"ts"` // Unix milliseconds
	Task   *Task         `json:"task,omitempty"`
	Detail *TaskDetail   `json:"detail,omitempty"`
}
