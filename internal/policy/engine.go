// Package policy guards tool executions with an OPA rego policy.
package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/rego"
)

// Limits are the numeric bounds exposed to the policy as input.limits.
type Limits struct {
	MaxBatch       int `json:"max_batch"`
	MaxDetailChars int `json:"max_detail_chars"`
}

// Input is the document a tool call is evaluated against.
type Input struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args"`
	Limits   Limits         `json:"limits"`
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	Reasons []string
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
// The policy must define a set rule data.tool_policy.deny of messages.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.deny"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the tool policy. An empty deny set allows the call.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	doc := map[string]any{
		"tool_name": input.ToolName,
		"args":      input.Args,
		"limits": map[string]any{
			"max_batch":        input.Limits.MaxBatch,
			"max_detail_chars": input.Limits.MaxDetailChars,
		},
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allowed: true}, nil
	}

	values, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}
	reasons := make([]string, 0, len(values))
	for _, v := range values {
		reasons = append(reasons, fmt.Sprint(v))
	}
	sort.Strings(reasons)
	return Decision{Allowed: len(reasons) == 0, Reasons: reasons}, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package tool_policy

import rego.v1

deny contains msg if {
	input.tool_name == "createTasks"
	count(input.args.titles) > input.limits.max_batch
	msg := sprintf("createTasks accepts at most %d titles", [input.limits.max_batch])
}

deny contains msg if {
	input.tool_name == "completeTasks"
	count(input.args.taskIds) > input.limits.max_batch
	msg := sprintf("completeTasks accepts at most %d ids", [input.limits.max_batch])
}

deny contains msg if {
	input.tool_name == "attachDetails"
	count(input.args.items) > input.limits.max_batch
	msg := sprintf("attachDetails accepts at most %d items", [input.limits.max_batch])
}

deny contains msg if {
	input.tool_name == "attachDetail"
	count(input.args.content) > input.limits.max_detail_chars
	msg := sprintf("detail content exceeds %d characters", [input.limits.max_detail_chars])
}
`
