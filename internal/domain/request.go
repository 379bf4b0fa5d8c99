package domain

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// ChatHistoryResponse is the body of GET /api/chat.
type ChatHistoryResponse struct {
	Messages []Message `json:"messages"`
}

// CachedReply is returned when a chat turn is replayed from the idempotency cache.
type CachedReply struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Cached  bool   `json:"cached"`
}

// CreateTasksRequest is the body of POST /api/tasks. Either Title or Titles is set.
type CreateTasksRequest struct {
	Title  string   `json:"title,omitempty"`
	Titles []string `json:"titles,omitempty"`
}

// UpdateTaskRequest is the body of PATCH /api/tasks/:id.
type UpdateTaskRequest struct {
	Status TaskStatus `json:"status"`
}

// TaskDetailResponse is the body of GET /api/tasks/:id.
type TaskDetailResponse struct {
	Task    *Task        `json:"task"`
	Details []TaskDetail `json:"details"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// AuthStatus is the body of GET /api/auth/status.
type AuthStatus struct {
	AuthRequired  bool `json:"authRequired"`
	Authenticated bool `json:"authenticated"`
}

// SetActiveModelRequest is the body of POST /api/models/active.
type SetActiveModelRequest struct {
	ModelID string `json:"modelId"`
}

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Models   []Model `json:"models"`
	ActiveID string  `json:"activeId"`
}
