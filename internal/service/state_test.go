package service

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

func TestTurnTransitions(t *testing.T) {
	assert.True(t, canTransition(domain.TurnStateIdle, domain.TurnStateIdentityResolved))
	assert.True(t, canTransition(domain.TurnStateIdempotencyChecked, domain.TurnStateCacheHit))
	assert.True(t, canTransition(domain.TurnStateStreaming, domain.TurnStateFailed))
	assert.False(t, canTransition(domain.TurnStateDone, domain.TurnStateStreaming))
	assert.False(t, canTransition(domain.TurnStateCacheHit, domain.TurnStateInvoking))
	assert.False(t, canTransition(domain.TurnStateFinalizing, domain.TurnStateFailed))

	state := domain.TurnStateIdle
	advance(&state, domain.TurnStateIdentityResolved)
	assert.Equal(t, domain.TurnStateIdentityResolved, state)
}

func TestTurnDetachDropsChunks(t *testing.T) {
	turn := newTurn()
	turn.emit(domain.StreamChunk{Type: domain.ChunkTypeStart})
	turn.Detach()
	turn.Detach()
	for i := 0; i < 200; i++ {
		turn.emit(domain.StreamChunk{Type: domain.ChunkTypeTextDelta, Delta: "x"})
	}
	turn.finish()

	var got []domain.StreamChunk
	for c := range turn.Chunks() {
		got = append(got, c)
	}
	require.Len(t, got, 1)
	assert.Equal(t, domain.ChunkTypeStart, got[0].Type)
}

func TestToLLMMessages(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleSystem, Parts: []domain.Part{{Type: domain.PartTypeText, Text: "ignore me"}}},
		userMessage("add milk"),
		{Role: domain.RoleAssistant, Parts: []domain.Part{
			{Type: domain.PartTypeReasoning, Text: "thinking"},
			{Type: domain.PartTypeToolCall, ToolCallID: "c1", ToolName: "createTasks", Input: json.RawMessage(`{"titles":["Milk"]}`)},
			{Type: domain.PartTypeToolResult, ToolCallID: "c1", ToolName: "createTasks", Output: json.RawMessage(`{"createdTasks":[]}`)},
			{Type: domain.PartTypeText, Text: "Done."},
		}},
	}

	msgs := toLLMMessages("SYS", normalizeHistory(history))
	require.Len(t, msgs, 5)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "SYS", msgs[0].Content)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "assistant", msgs[2].Role)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, `{"titles":["Milk"]}`, msgs[2].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "tool", msgs[3].Role)
	assert.Equal(t, "c1", msgs[3].ToolCallID)
	assert.Equal(t, "Done.", msgs[4].Content)
}

func TestToolInputQuotesMalformedArguments(t *testing.T) {
	assert.JSONEq(t, `{}`, string(toolInput("")))
	assert.JSONEq(t, `{"a":1}`, string(toolInput(`{"a":1}`)))
	quoted := toolInput(`{"a":`)
	assert.Equal(t, `{"a":`, rawArguments(quoted))
}

func TestBuildSystemPromptListsTasks(t *testing.T) {
	prompt := buildSystemPrompt([]domain.Task{{ID: "t1", Title: "Milk", Status: domain.TaskStatusPending}})
	assert.True(t, strings.HasPrefix(prompt, "You are a concise task-tracking assistant."))
	assert.Contains(t, prompt, `"id": "t1"`)
	assert.Contains(t, prompt, `"status": "pending"`)

	empty := buildSystemPrompt(nil)
	assert.True(t, strings.HasSuffix(empty, "[]"))
}
