package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jjspscl/hunt-st-assessment/internal/adapter/llm"
	"github.com/jjspscl/hunt-st-assessment/internal/config"
	"github.com/jjspscl/hunt-st-assessment/internal/domain"
	"github.com/jjspscl/hunt-st-assessment/internal/policy"
	store "github.com/jjspscl/hunt-st-assessment/internal/repository"
	"github.com/jjspscl/hunt-st-assessment/tests/helpers"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.TaskEvent
}

func (r *recordingNotifier) Publish(e domain.TaskEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) Types() []domain.TaskEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TaskEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	svc      *Service
	store    *store.SQLiteStore
	mock     *llm.MockClient
	cfg      *config.Config
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, mock *llm.MockClient, mutate func(*config.Config), opts ...Option) *testEnv {
	t.Helper()
	cfg := config.Defaults()
	cfg.LLMAPIKey = "test-key"
	cfg.IdempotencyWait = 5 * time.Second
	if mutate != nil {
		mutate(cfg)
	}

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	db := helpers.NewTestSQLiteStore(t)
	notifier := &recordingNotifier{}
	opts = append([]Option{WithNotifier(notifier)}, opts...)
	return &testEnv{
		svc:      New(db, mock, cfg, engine, opts...),
		store:    db,
		mock:     mock,
		cfg:      cfg,
		notifier: notifier,
	}
}

func userMessage(text string) domain.Message {
	return domain.Message{Role: domain.RoleUser, Parts: []domain.Part{{Type: domain.PartTypeText, Text: text}}}
}

func drain(t *testing.T, turn *Turn) []domain.StreamChunk {
	t.Helper()
	var chunks []domain.StreamChunk
	timeout := time.After(10 * time.Second)
	for {
		select {
		case c, ok := <-turn.Chunks():
			if !ok {
				return chunks
			}
			chunks = append(chunks, c)
		case <-timeout:
			t.Fatalf("turn did not finish")
		}
	}
}

func chunkTypes(chunks []domain.StreamChunk) []domain.ChunkType {
	out := make([]domain.ChunkType, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Type)
	}
	return out
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Type: "function", Function: llm.ToolCallFunction{Name: name, Arguments: args}}
}
