// Package domain defines the core domain models for the task tracker.
package domain

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusPending || s == TaskStatusCompleted
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// PartType tags the variant held by a Part.
type PartType string

const (
	PartTypeText       PartType = "text"
	PartTypeReasoning  PartType = "reasoning"
	PartTypeToolCall   PartType = "tool-call"
	PartTypeToolResult PartType = "tool-result"
)

// ChunkType represents the type of a streamed chunk.
type ChunkType string

const (
	ChunkTypeStart          ChunkType = "start"
	ChunkTypeTextDelta      ChunkType = "text-delta"
	ChunkTypeReasoningDelta ChunkType = "reasoning-delta"
	ChunkTypeToolCall       ChunkType = "tool-call"
	ChunkTypeToolResult     ChunkType = "tool-result"
	ChunkTypeError          ChunkType = "error"
	ChunkTypeFinish         ChunkType = "finish"
)

// TurnState represents where a chat turn is in its lifecycle.
type TurnState string

const (
	TurnStateIdle               TurnState = "IDLE"
	TurnStateIdentityResolved   TurnState = "IDENTITY_RESOLVED"
	TurnStateIdempotencyChecked TurnState = "IDEMPOTENCY_CHECKED"
	TurnStateCacheHit           TurnState = "CACHE_HIT"
	TurnStateInvoking           TurnState = "INVOKING"
	TurnStateStreaming          TurnState = "STREAMING"
	TurnStateFinalizing         TurnState = "FINALIZING"
	TurnStateDone               TurnState = "DONE"
	TurnStateFailed             TurnState = "FAILED"
)

// Terminal reports whether no further transitions are possible.
func (s TurnState) Terminal() bool {
	return s == TurnStateDone || s == TurnStateFailed || s == TurnStateCacheHit
}

// IdempotencyStatus represents the status of an idempotency record.
type IdempotencyStatus string

const (
	IdempotencyStatusPending  IdempotencyStatus = "pending"
	IdempotencyStatusComplete IdempotencyStatus = "complete"
)

// TaskEventType represents the type of a live task event.
type TaskEventType string

const (
	TaskEventCreated        TaskEventType = "task_created"
	TaskEventCompleted      TaskEventType = "task_completed"
	TaskEventDetailAttached TaskEventType = "detail_attached"
	TaskEventReset          TaskEventType = "reset"
)
