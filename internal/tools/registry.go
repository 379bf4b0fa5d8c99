// Package tools holds the closed set of operations the model may call.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jjspscl/hunt-st-assessment/internal/policy"
)

var (
	// ErrUnknownTool is returned for a tool name that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned when arguments fail decoding or validation.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrDenied is returned when the policy guard rejects a call.
	ErrDenied = errors.New("denied by tool policy")
)

// ExecutorFunc defines a server-side tool executor.
type ExecutorFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Definition describes a tool to the model.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Guard decides whether a tool call may run.
type Guard interface {
	Evaluate(ctx context.Context, input policy.Input) (policy.Decision, error)
}

type entry struct {
	def  Definition
	exec ExecutorFunc
}

// Registry stores tool executors keyed by tool name.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
	guard   Guard
	limits  policy.Limits
}

// NewRegistry creates an empty tool registry. guard may be nil.
func NewRegistry(guard Guard, limits policy.Limits) *Registry {
	return &Registry{
		entries: make(map[string]entry),
		guard:   guard,
		limits:  limits,
	}
}

// Register adds a tool.
func (r *Registry) Register(def Definition, exec ExecutorFunc) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if exec == nil {
		return fmt.Errorf("executor is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("executor already registered for %s", def.Name)
	}
	r.entries[def.Name] = entry{def: def, exec: exec}
	r.order = append(r.order, def.Name)
	return nil
}

// Definitions returns the registered tools in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].def)
	}
	return defs
}

// Execute runs the tool after the policy guard admits it.
func (r *Registry) Execute(ctx context.Context, toolName string, args json.RawMessage) (json.RawMessage, error) {
	if toolName == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	r.mu.RLock()
	e, ok := r.entries[toolName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, toolName)
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	if r.guard != nil {
		var doc map[string]any
		if err := json.Unmarshal(args, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		decision, err := r.guard.Evaluate(ctx, policy.Input{ToolName: toolName, Args: doc, Limits: r.limits})
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate tool policy: %w", err)
		}
		if !decision.Allowed {
			return nil, fmt.Errorf("%w: %s", ErrDenied, strings.Join(decision.Reasons, "; "))
		}
	}
	return e.exec(ctx, args)
}

// ErrorOutput renders err as a tool result payload.
func ErrorOutput(err error) json.RawMessage {
	out, _ := json.Marshal(map[string]string{"error": err.Error()})
	return out
}
