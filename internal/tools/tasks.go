package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

// TaskStore is the task side of the tool bindings.
type TaskStore interface {
	CreateTask(ctx context.Context, title string) (*domain.Task, error)
	// CompleteTask returns nil when the task does not exist.
	CompleteTask(ctx context.Context, taskID string) (*domain.Task, error)
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
}

// DetailStore is the detail side of the tool bindings.
type DetailStore interface {
	AttachDetail(ctx context.Context, taskID, content string) (*domain.TaskDetail, error)
}

// CreateTasksArgs are the arguments of createTasks.
type CreateTasksArgs struct {
	Titles []string `json:"titles" jsonschema:"minItems=1,description=Task titles in the order they should be created"`
}

func (a *CreateTasksArgs) Validate() error {
	if len(a.Titles) == 0 {
		return errors.New("titles must not be empty")
	}
	for i, t := range a.Titles {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("titles[%d] is blank", i)
		}
	}
	return nil
}

// CreateTasksResult is the result of createTasks.
type CreateTasksResult struct {
	CreatedTasks []domain.TaskRef `json:"createdTasks"`
	// Error is set when the store failed partway; CreatedTasks holds what was created before it.
	Error string `json:"error,omitempty"`
}

// CompleteTasksArgs are the arguments of completeTasks.
type CompleteTasksArgs struct {
	TaskIDs []string `json:"taskIds" jsonschema:"minItems=1,description=IDs of the tasks to mark completed"`
}

func (a *CompleteTasksArgs) Validate() error {
	if len(a.TaskIDs) == 0 {
		return errors.New("taskIds must not be empty")
	}
	return nil
}

// CompleteTasksResult is the result of completeTasks.
type CompleteTasksResult struct {
	CompletedTasks []domain.TaskRef `json:"completedTasks"`
	NotFound       []string         `json:"notFound"`
}

// AttachDetailArgs are the arguments of attachDetail.
type AttachDetailArgs struct {
	TaskID  string `json:"taskId" jsonschema:"description=ID of the task the note belongs to"`
	Content string `json:"content" jsonschema:"description=Markdown content of the note"`
}

func (a *AttachDetailArgs) Validate() error {
	if strings.TrimSpace(a.TaskID) == "" {
		return errors.New("taskId is required")
	}
	if strings.TrimSpace(a.Content) == "" {
		return errors.New("content is required")
	}
	return nil
}

// AttachDetailResult is the result of attachDetail.
type AttachDetailResult struct {
	Detail domain.DetailRef `json:"detail"`
}

// AttachDetailsArgs are the arguments of attachDetails.
type AttachDetailsArgs struct {
	Items []AttachDetailArgs `json:"items" jsonschema:"minItems=1,description=Notes to attach; each item is processed independently"`
}

// Validate checks the batch only. Items are checked one at a time by the
// executor so that one bad item does not sink the rest.
func (a *AttachDetailsArgs) Validate() error {
	if len(a.Items) == 0 {
		return errors.New("items must not be empty")
	}
	return nil
}

// AttachDetailsResult is the result of attachDetails.
type AttachDetailsResult struct {
	Attached int                `json:"attached"`
	Details  []domain.DetailRef `json:"details"`
	NotFound []string           `json:"notFound"`
	Failed   []ItemError        `json:"failed,omitempty"`
}

// ItemError reports a batch item that failed for a reason other than a missing task.
type ItemError struct {
	TaskID string `json:"taskId"`
	Error  string `json:"error"`
}

// Tool names.
const (
	CreateTasks   = "createTasks"
	CompleteTasks = "completeTasks"
	AttachDetail  = "attachDetail"
	AttachDetails = "attachDetails"
)

// RegisterTaskTools binds the four task tools to tasks and details.
func RegisterTaskTools(r *Registry, tasks TaskStore, details DetailStore) error {
	maxChars := r.limits.MaxDetailChars
	defs := []struct {
		def  Definition
		exec ExecutorFunc
	}{
		{
			Definition{
				Name:        CreateTasks,
				Description: "Create one task per title, in order. Returns the created task ids and titles.",
				Parameters:  Schema[CreateTasksArgs](),
			},
			Typed(func(ctx context.Context, args CreateTasksArgs) (CreateTasksResult, error) {
				return createTasks(ctx, tasks, args)
			}),
		},
		{
			Definition{
				Name:        CompleteTasks,
				Description: "Mark tasks completed by id. Unknown ids are returned in notFound.",
				Parameters:  Schema[CompleteTasksArgs](),
			},
			Typed(func(ctx context.Context, args CompleteTasksArgs) (CompleteTasksResult, error) {
				return completeTasks(ctx, tasks, args)
			}),
		},
		{
			Definition{
				Name:        AttachDetail,
				Description: "Attach a markdown note to a task. Attaching identical content again returns the existing note.",
				Parameters:  Schema[AttachDetailArgs](),
			},
			Typed(func(ctx context.Context, args AttachDetailArgs) (AttachDetailResult, error) {
				return attachDetail(ctx, tasks, details, args)
			}),
		},
		{
			Definition{
				Name:        AttachDetails,
				Description: "Attach several markdown notes. Each item succeeds or fails on its own.",
				Parameters:  Schema[AttachDetailsArgs](),
			},
			Typed(func(ctx context.Context, args AttachDetailsArgs) (AttachDetailsResult, error) {
				return attachDetails(ctx, tasks, details, maxChars, args)
			}),
		},
	}
	for _, d := range defs {
		if err := r.Register(d.def, d.exec); err != nil {
			return err
		}
	}
	return nil
}

func createTasks(ctx context.Context, tasks TaskStore, args CreateTasksArgs) (CreateTasksResult, error) {
	result := CreateTasksResult{CreatedTasks: make([]domain.TaskRef, 0, len(args.Titles))}
	for _, title := range args.Titles {
		task, err := tasks.CreateTask(ctx, strings.TrimSpace(title))
		if err != nil {
			result.Error = fmt.Sprintf("failed to create task %q: %v", title, err)
			return result, nil
		}
		result.CreatedTasks = append(result.CreatedTasks, task.Ref())
	}
	return result, nil
}

func completeTasks(ctx context.Context, tasks TaskStore, args CompleteTasksArgs) (CompleteTasksResult, error) {
	result := CompleteTasksResult{
		CompletedTasks: []domain.TaskRef{},
		NotFound:       []string{},
	}
	for _, id := range args.TaskIDs {
		task, err := tasks.CompleteTask(ctx, id)
		if err != nil {
			return result, fmt.Errorf("failed to complete task %s: %w", id, err)
		}
		if task == nil {
			result.NotFound = append(result.NotFound, id)
			continue
		}
		result.CompletedTasks = append(result.CompletedTasks, task.Ref())
	}
	return result, nil
}

func attachDetail(ctx context.Context, tasks TaskStore, details DetailStore, args AttachDetailArgs) (AttachDetailResult, error) {
	task, err := tasks.GetTask(ctx, args.TaskID)
	if err != nil {
		return AttachDetailResult{}, fmt.Errorf("failed to load task %s: %w", args.TaskID, err)
	}
	if task == nil {
		return AttachDetailResult{}, fmt.Errorf("task %s not found", args.TaskID)
	}
	detail, err := details.AttachDetail(ctx, args.TaskID, args.Content)
	if err != nil {
		return AttachDetailResult{}, fmt.Errorf("failed to attach detail: %w", err)
	}
	return AttachDetailResult{Detail: detail.Ref()}, nil
}

func attachDetails(ctx context.Context, tasks TaskStore, details DetailStore, maxChars int, args AttachDetailsArgs) (AttachDetailsResult, error) {
	result := AttachDetailsResult{
		Details:  []domain.DetailRef{},
		NotFound: []string{},
	}
	for _, item := range args.Items {
		if err := item.Validate(); err != nil {
			result.Failed = append(result.Failed, ItemError{TaskID: item.TaskID, Error: err.Error()})
			continue
		}
		if maxChars > 0 && utf8.RuneCountInString(item.Content) > maxChars {
			result.Failed = append(result.Failed, ItemError{
				TaskID: item.TaskID,
				Error:  fmt.Sprintf("content exceeds %d characters", maxChars),
			})
			continue
		}
		task, err := tasks.GetTask(ctx, item.TaskID)
		if err != nil {
			result.Failed = append(result.Failed, ItemError{TaskID: item.TaskID, Error: err.Error()})
			continue
		}
		if task == nil {
			result.NotFound = append(result.NotFound, item.TaskID)
			continue
		}
		detail, err := details.AttachDetail(ctx, item.TaskID, item.Content)
		if err != nil {
			result.Failed = append(result.Failed, ItemError{TaskID: item.TaskID, Error: err.Error()})
			continue
		}
		result.Details = append(result.Details, detail.Ref())
	}
	result.Attached = len(result.Details)
	return result, nil
}
