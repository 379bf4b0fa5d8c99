package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjspscl/hunt-st-assessment/internal/adapter/llm"
	"github.com/jjspscl/hunt-st-assessment/internal/config"
	"github.com/jjspscl/hunt-st-assessment/internal/domain"
	store "github.com/jjspscl/hunt-st-assessment/internal/repository"
	"github.com/jjspscl/hunt-st-assessment/internal/tools"
)

var testIdentity = domain.Identity{ConversationID: "ip:10.0.0.1", Source: domain.IdentitySourceIP}

func createTasksScript() []llm.MockStep {
	return []llm.MockStep{
		{ToolCalls: []llm.ToolCall{toolCall("call_1", tools.CreateTasks, `{"titles":["Buy milk","Call dentist"]}`)}},
		{Content: "Created **Buy milk** and **Call dentist**."},
	}
}

func runTurn(t *testing.T, env *testEnv, text string) (*TurnResult, []domain.StreamChunk) {
	t.Helper()
	orch := env.svc.NewOrchestrator(context.Background(), testIdentity)
	res, err := orch.Handle(context.Background(), domain.ChatRequest{Messages: []domain.Message{userMessage(text)}})
	require.NoError(t, err)
	if res.Turn == nil {
		return res, nil
	}
	chunks := drain(t, res.Turn)
	return res, chunks
}

func TestChatCreatesTasks(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(createTasksScript()...), nil)
	ctx := context.Background()

	res, chunks := runTurn(t, env, "create tasks to buy milk and call the dentist")
	require.NotNil(t, res.Turn)
	require.NoError(t, res.Turn.Wait(ctx))
	assert.Equal(t, domain.TurnStateDone, res.Turn.State())

	types := chunkTypes(chunks)
	assert.Equal(t, domain.ChunkTypeStart, types[0])
	assert.Equal(t, domain.ChunkTypeFinish, types[len(types)-1])
	assert.Contains(t, types, domain.ChunkTypeToolCall)
	assert.Contains(t, types, domain.ChunkTypeToolResult)
	assert.Contains(t, types, domain.ChunkTypeTextDelta)

	tasks, err := env.svc.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.Equal(t, "Call dentist", tasks[1].Title)
	assert.Equal(t, domain.TaskStatusPending, tasks[0].Status)
	assert.NotEqual(t, tasks[0].ID, tasks[1].ID)

	history, err := env.svc.GetHistory(ctx, testIdentity)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assistant := history[1]
	assert.Equal(t, domain.RoleAssistant, assistant.Role)
	require.Len(t, assistant.Parts, 3)
	assert.Equal(t, domain.PartTypeToolCall, assistant.Parts[0].Type)
	assert.Equal(t, domain.PartTypeToolResult, assistant.Parts[1].Type)
	assert.False(t, assistant.Parts[1].IsError)
	assert.Equal(t, "Created **Buy milk** and **Call dentist**.", assistant.Text())

	// The second model call saw the tool result.
	reqs := env.mock.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, "system", reqs[0].Messages[0].Role)
	assert.Len(t, reqs[0].Tools, 4)
}

func TestChatReplaysIdenticalSubmission(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(createTasksScript()...), nil)
	ctx := context.Background()

	first, _ := runTurn(t, env, "create a task to buy milk")
	require.NoError(t, first.Turn.Wait(ctx))
	calls := env.mock.Calls()

	second, _ := runTurn(t, env, "create a task to buy milk")
	require.NotNil(t, second.Cached)
	assert.True(t, second.Cached.Cached)
	assert.Equal(t, domain.RoleAssistant, second.Cached.Role)
	assert.Equal(t, "Created **Buy milk** and **Call dentist**.", second.Cached.Content)
	assert.Equal(t, calls, env.mock.Calls(), "cached reply must not invoke the model")

	tasks, err := env.svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestChatRapidDuplicateCreatesOnce(t *testing.T) {
	script := createTasksScript()
	script[0].Delay = 20 * time.Millisecond
	env := newTestEnv(t, llm.NewMockClient(script...), nil)
	ctx := context.Background()

	req := domain.ChatRequest{Messages: []domain.Message{userMessage("create a task to buy milk")}}
	first, err := env.svc.NewOrchestrator(ctx, testIdentity).Handle(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, first.Turn)

	type outcome struct {
		res *TurnResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := env.svc.NewOrchestrator(ctx, testIdentity).Handle(ctx, req)
		done <- outcome{res, err}
	}()

	drain(t, first.Turn)
	got := <-done
	require.NoError(t, got.err)
	require.NotNil(t, got.res.Cached, "duplicate should replay the first turn")
	assert.Equal(t, "Created **Buy milk** and **Call dentist**.", got.res.Cached.Content)

	tasks, err := env.svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Equal(t, 2, env.mock.Calls())
}

func TestChatCacheExpires(t *testing.T) {
	clock := newFakeClock()
	env := newTestEnv(t, llm.NewMockClient(
		llm.MockStep{Content: "first"},
		llm.MockStep{Content: "second"},
	), nil, WithClock(clock.Now))
	ctx := context.Background()

	first, _ := runTurn(t, env, "hello")
	require.NoError(t, first.Turn.Wait(ctx))

	clock.Advance(env.cfg.IdempotencyTTL + time.Second)

	second, chunks := runTurn(t, env, "hello")
	require.NotNil(t, second.Turn, "expired cache entry must re-invoke the model")
	require.NoError(t, second.Turn.Wait(ctx))
	assert.Equal(t, 2, env.mock.Calls())
	assert.Equal(t, domain.ChunkTypeFinish, chunks[len(chunks)-1].Type)
}

func TestChatStreamErrorKeepsSnapshot(t *testing.T) {
	boom := errors.New("upstream exploded")
	env := newTestEnv(t, llm.NewMockClient(
		llm.MockStep{Content: "hi there"},
		llm.MockStep{Content: "partial", Err: boom},
		llm.MockStep{Content: "recovered"},
	), nil)
	ctx := context.Background()

	first, _ := runTurn(t, env, "hello")
	require.NoError(t, first.Turn.Wait(ctx))
	before, err := env.svc.GetHistory(ctx, testIdentity)
	require.NoError(t, err)

	second, chunks := runTurn(t, env, "second message")
	assert.ErrorIs(t, second.Turn.Wait(ctx), boom)
	assert.Equal(t, domain.TurnStateFailed, second.Turn.State())
	last := chunks[len(chunks)-1]
	assert.Equal(t, domain.ChunkTypeError, last.Type)
	assert.Equal(t, string(domain.ErrCodeLLM), last.Code)
	assert.NotContains(t, chunkTypes(chunks), domain.ChunkTypeFinish)

	after, err := env.svc.GetHistory(ctx, testIdentity)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// The reservation was released, so a retry runs instead of waiting.
	third, _ := runTurn(t, env, "second message")
	require.NotNil(t, third.Turn)
	require.NoError(t, third.Turn.Wait(ctx))
	assert.Equal(t, 3, env.mock.Calls())
}

func TestChatToolErrorsStayInline(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(
		llm.MockStep{ToolCalls: []llm.ToolCall{
			toolCall("call_1", tools.AttachDetail, `{"taskId":"ghost","content":"note"}`),
			toolCall("call_2", tools.CompleteTasks, `{"taskIds":["ghost"]}`),
			toolCall("call_3", "dropTables", `{}`),
		}},
		llm.MockStep{Content: "I could not find that task."},
	), nil)
	ctx := context.Background()

	res, chunks := runTurn(t, env, "add a note to ghost")
	require.NoError(t, res.Turn.Wait(ctx))

	var results []domain.StreamChunk
	for _, c := range chunks {
		if c.Type == domain.ChunkTypeToolResult {
			results = append(results, c)
		}
	}
	require.Len(t, results, 3)
	assert.True(t, results[0].IsError)
	assert.False(t, results[1].IsError)
	assert.True(t, results[2].IsError)

	var complete tools.CompleteTasksResult
	require.NoError(t, json.Unmarshal(results[1].Output, &complete))
	assert.Empty(t, complete.CompletedTasks)
	assert.Equal(t, []string{"ghost"}, complete.NotFound)
}

func TestChatDetachedClientStillFinalizes(t *testing.T) {
	script := createTasksScript()
	script[1].Delay = 5 * time.Millisecond
	env := newTestEnv(t, llm.NewMockClient(script...), nil)
	ctx := context.Background()

	orch := env.svc.NewOrchestrator(ctx, testIdentity)
	res, err := orch.Handle(ctx, domain.ChatRequest{Messages: []domain.Message{userMessage("make tasks")}})
	require.NoError(t, err)

	res.Turn.Detach()
	require.NoError(t, res.Turn.Wait(ctx))
	assert.Equal(t, domain.TurnStateDone, orch.State())

	history, err := env.svc.GetHistory(ctx, testIdentity)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	cached, _ := runTurn(t, env, "make tasks")
	require.NotNil(t, cached.Cached)
}

func TestServiceDrainWaitsForDetachedTurn(t *testing.T) {
	script := createTasksScript()
	script[1].Delay = 50 * time.Millisecond
	env := newTestEnv(t, llm.NewMockClient(script...), nil)
	ctx := context.Background()

	orch := env.svc.NewOrchestrator(ctx, testIdentity)
	res, err := orch.Handle(ctx, domain.ChatRequest{Messages: []domain.Message{userMessage("make tasks")}})
	require.NoError(t, err)
	res.Turn.Detach()

	expired, cancel := context.WithTimeout(ctx, time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, env.svc.Drain(expired), context.DeadlineExceeded)

	drainCtx, drainCancel := context.WithTimeout(ctx, 5*time.Second)
	defer drainCancel()
	require.NoError(t, env.svc.Drain(drainCtx))
	assert.Equal(t, domain.TurnStateDone, orch.State())

	history, err := env.svc.GetHistory(ctx, testIdentity)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestServiceDrainWithNoTurns(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(), nil)
	require.NoError(t, env.svc.Drain(context.Background()))
}

// flakyStore fails transcript and idempotency persistence.
type flakyStore struct {
	store.Store
}

var errFlaky = errors.New("database is locked")

func (flakyStore) SaveConversation(ctx context.Context, conv *domain.Conversation) error {
	return errFlaky
}

func (flakyStore) GetIdempotencyRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	return nil, errFlaky
}

func (flakyStore) CompleteIdempotencyKey(ctx context.Context, key, response string, now, expiresAt time.Time) (bool, error) {
	return false, errFlaky
}

func TestChatPersistenceErrorsDoNotFailTurn(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(createTasksScript()...), nil)
	svc := New(flakyStore{Store: env.store}, env.mock, env.cfg, nil)
	ctx := context.Background()

	orch := svc.NewOrchestrator(ctx, testIdentity)
	res, err := orch.Handle(ctx, domain.ChatRequest{Messages: []domain.Message{userMessage("make tasks")}})
	require.NoError(t, err)
	require.NotNil(t, res.Turn)
	chunks := drain(t, res.Turn)
	require.NoError(t, res.Turn.Wait(ctx))
	assert.Equal(t, domain.TurnStateDone, res.Turn.State())

	last := chunks[len(chunks)-1]
	assert.Equal(t, domain.ChunkTypeFinish, last.Type)
	assert.NotContains(t, chunkTypes(chunks), domain.ChunkTypeError)

	tasks, err := env.store.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	conv, err := env.store.GetConversation(ctx, testIdentity.ConversationID)
	require.NoError(t, err)
	assert.Nil(t, conv)
}

func TestChatStepLimit(t *testing.T) {
	loop := llm.MockStep{ToolCalls: []llm.ToolCall{toolCall("", tools.CompleteTasks, `{"taskIds":["x"]}`)}}
	env := newTestEnv(t, llm.NewMockClient(loop, loop, loop, loop), func(cfg *config.Config) {
		cfg.ChatMaxSteps = 2
	})
	ctx := context.Background()

	res, chunks := runTurn(t, env, "loop forever")
	require.NoError(t, res.Turn.Wait(ctx))
	assert.Equal(t, 2, env.mock.Calls())

	finish := chunks[len(chunks)-1]
	assert.Equal(t, domain.ChunkTypeFinish, finish.Type)
	assert.Equal(t, "max_steps", finish.FinishReason)
	assert.Equal(t, 2, finish.Usage.Steps)
}

func TestChatRejectsBeforeSideEffects(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t, llm.NewMockClient(), nil)
	_, err := env.svc.NewOrchestrator(ctx, testIdentity).Handle(ctx, domain.ChatRequest{})
	assert.Equal(t, domain.ErrCodeMessagesRequired, domain.AsError(err).Code)

	orch := env.svc.NewOrchestrator(ctx, testIdentity)
	_, err = orch.Handle(ctx, domain.ChatRequest{Messages: []domain.Message{
		{Role: domain.RoleAssistant, Parts: []domain.Part{{Type: domain.PartTypeText, Text: "hi"}}},
	}})
	assert.Equal(t, domain.ErrCodeValidation, domain.AsError(err).Code)
	assert.Equal(t, domain.TurnStateFailed, orch.State())

	_, err = env.svc.NewOrchestrator(ctx, testIdentity).Handle(ctx, domain.ChatRequest{Messages: []domain.Message{
		{Role: "robot", Parts: []domain.Part{{Type: domain.PartTypeText, Text: "hi"}}},
	}})
	assert.Equal(t, domain.ErrCodeValidation, domain.AsError(err).Code)

	noKey := newTestEnv(t, llm.NewMockClient(), func(cfg *config.Config) { cfg.LLMAPIKey = "" })
	_, err = noKey.svc.NewOrchestrator(ctx, testIdentity).Handle(ctx, domain.ChatRequest{Messages: []domain.Message{userMessage("hi")}})
	assert.True(t, errors.Is(err, domain.ErrMissingAPIKey))
	assert.Equal(t, 0, noKey.mock.Calls())
}

func TestChatUsesActiveModel(t *testing.T) {
	env := newTestEnv(t, llm.NewMockClient(llm.MockStep{Content: "ok"}), nil)
	ctx := context.Background()
	require.NoError(t, env.svc.SetActiveModel(ctx, "mock/large"))

	res, _ := runTurn(t, env, "hello")
	require.NoError(t, res.Turn.Wait(ctx))
	reqs := env.mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "mock/large", reqs[1].Model)
}
