package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

// CreateTask creates a pending task.
func (s *Service) CreateTask(ctx context.Context, title string) (*domain.Task, error) {
	now := s.now()
	task := &domain.Task{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    domain.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	s.publish(domain.TaskEventCreated, task, nil)
	return task, nil
}

// CreateTasks creates one task per title, in order.
func (s *Service) CreateTasks(ctx context.Context, req domain.CreateTasksRequest) ([]domain.Task, error) {
	var titles []string
	if req.Title != "" {
		titles = append(titles, req.Title)
	}
	titles = append(titles, req.Titles...)
	if len(titles) == 0 {
		return nil, domain.NewError(domain.ErrCodeValidation, http.StatusBadRequest, "title or titles is required")
	}
	for i, t := range titles {
		titles[i] = strings.TrimSpace(t)
		if titles[i] == "" {
			return nil, domain.NewError(domain.ErrCodeValidation, http.StatusBadRequest, "titles must not be blank")
		}
	}

	created := make([]domain.Task, 0, len(titles))
	for _, title := range titles {
		task, err := s.CreateTask(ctx, title)
		if err != nil {
			return created, err
		}
		created = append(created, *task)
	}
	return created, nil
}

// GetTask returns a task or nil when it does not exist.
func (s *Service) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListTasks returns every task ordered by creation time.
func (s *Service) ListTasks(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// CompleteTask marks a task completed. It returns nil when the task does not
// exist; completing a completed task is a no-op.
func (s *Service) CompleteTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil || task == nil {
		return nil, err
	}
	if task.Status == domain.TaskStatusCompleted {
		return task, nil
	}

	now := s.now()
	updated, err := s.store.UpdateTaskStatus(ctx, taskID, domain.TaskStatusCompleted, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}
	if !updated {
		return nil, nil
	}
	task.Status = domain.TaskStatusCompleted
	task.UpdatedAt = now
	s.publish(domain.TaskEventCompleted, task, nil)
	return task, nil
}

// UpdateTask applies a status change. Only pending to completed is allowed.
func (s *Service) UpdateTask(ctx context.Context, taskID string, req domain.UpdateTaskRequest) (*domain.Task, error) {
	if req.Status != domain.TaskStatusCompleted {
		return nil, domain.NewError(domain.ErrCodeTaskInvalidUpdate, http.StatusBadRequest, "status can only be set to completed")
	}
	task, err := s.CompleteTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

// GetTaskWithDetails returns a task and its details.
func (s *Service) GetTaskWithDetails(ctx context.Context, taskID string) (*domain.TaskDetailResponse, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	details, err := s.ListDetails(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &domain.TaskDetailResponse{Task: task, Details: details}, nil
}

// ListDetails returns the details of a task in creation order.
func (s *Service) ListDetails(ctx context.Context, taskID string) ([]domain.TaskDetail, error) {
	details, err := s.store.ListDetails(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list details: %w", err)
	}
	return details, nil
}

// AttachDetail appends a note to a task. Identical content on the same task
// returns the existing detail.
func (s *Service) AttachDetail(ctx context.Context, taskID, content string) (*domain.TaskDetail, error) {
	detail, created, err := s.store.InsertDetail(ctx, &domain.TaskDetail{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Content:   content,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach detail: %w", err)
	}
	if created {
		s.publish(domain.TaskEventDetailAttached, nil, detail)
	}
	return detail, nil
}
