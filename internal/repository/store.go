// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"time"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Task operations
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus, updatedAt time.Time) (bool, error)

	// Detail operations
	InsertDetail(ctx context.Context, detail *domain.TaskDetail) (*domain.TaskDetail, bool, error)
	ListDetails(ctx context.Context, taskID string) ([]domain.TaskDetail, error)

	// Conversation operations
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	SaveConversation(ctx context.Context, conv *domain.Conversation) error

	// Idempotency operations
	GetIdempotencyRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	ReserveIdempotencyKey(ctx context.Context, key string, now, expiresAt time.Time) (bool, error)
	CompleteIdempotencyKey(ctx context.Context, key, response string, now, expiresAt time.Time) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
	DeleteExpiredIdempotencyKey(ctx context.Context, key string, now time.Time) error
	PurgeExpiredIdempotencyKeys(ctx context.Context, now time.Time) (int64, error)

	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// Login attempt operations
	GetLoginAttempt(ctx context.Context, ipAddress string) (*domain.LoginAttempt, error)
	UpsertLoginAttempt(ctx context.Context, attempt *domain.LoginAttempt) error
	DeleteLoginAttempt(ctx context.Context, ipAddress string) error

	// Settings operations
	GetSetting(ctx context.Context, name string) (string, error)
	SetSetting(ctx context.Context, name, value string) error

	// ResetAll clears tasks, details, conversations, sessions, login attempts and idempotency keys.
	ResetAll(ctx context.Context) error

	Close() error
}
