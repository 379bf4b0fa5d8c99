package policy

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	require.NoError(t, err)
	return engine
}

func TestEvaluateAllowsWithinLimits(t *testing.T) {
	engine := newTestEngine(t)

	decision, err := engine.Evaluate(context.Background(), Input{
		ToolName: "createTasks",
		Args:     map[string]any{"titles": []any{"Buy milk", "Call dentist"}},
		Limits:   Limits{MaxBatch: 5, MaxDetailChars: 100},
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reasons)
}

func TestEvaluateDeniesOversizedBatch(t *testing.T) {
	engine := newTestEngine(t)

	decision, err := engine.Evaluate(context.Background(), Input{
		ToolName: "completeTasks",
		Args:     map[string]any{"taskIds": []any{"a", "b", "c"}},
		Limits:   Limits{MaxBatch: 2, MaxDetailChars: 100},
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	require.Len(t, decision.Reasons, 1)
	assert.Contains(t, decision.Reasons[0], "at most 2")
}

func TestEvaluateDeniesLongDetail(t *testing.T) {
	engine := newTestEngine(t)

	decision, err := engine.Evaluate(context.Background(), Input{
		ToolName: "attachDetail",
		Args:     map[string]any{"taskId": "t1", "content": strings.Repeat("x", 11)},
		Limits:   Limits{MaxBatch: 5, MaxDetailChars: 10},
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	require.Len(t, decision.Reasons, 1)
	assert.Contains(t, decision.Reasons[0], "10 characters")
}

// Per-item limits in a batch are enforced by the executor, not the guard.
func TestEvaluateAllowsBatchWithLongItem(t *testing.T) {
	engine := newTestEngine(t)

	decision, err := engine.Evaluate(context.Background(), Input{
		ToolName: "attachDetails",
		Args: map[string]any{"items": []any{
			map[string]any{"taskId": "t1", "content": "ok"},
			map[string]any{"taskId": "t2", "content": strings.Repeat("x", 11)},
		}},
		Limits: Limits{MaxBatch: 5, MaxDetailChars: 10},
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEvaluateIgnoresUnknownTools(t *testing.T) {
	engine := newTestEngine(t)

	decision, err := engine.Evaluate(context.Background(), Input{
		ToolName: "somethingElse",
		Args:     map[string]any{},
		Limits:   Limits{MaxBatch: 1, MaxDetailChars: 1},
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package tool_policy\n deny contains")
	assert.Error(t, err)
}
