package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jjspscl/hunt-st-assessment/internal/adapter/llm"
	"github.com/jjspscl/hunt-st-assessment/internal/domain"
	"github.com/jjspscl/hunt-st-assessment/internal/idempotency"
	store "github.com/jjspscl/hunt-st-assessment/internal/repository"
	"github.com/jjspscl/hunt-st-assessment/internal/tools"
)

// RequestScope holds everything one chat turn depends on. It is built per
// request so nothing is looked up from ambient state mid-turn.
type RequestScope struct {
	Store       store.Store
	LLM         llm.LLMClient
	APIKey      string
	Model       string
	Identity    domain.Identity
	Cache       *idempotency.Cache
	Tools       *tools.Registry
	MaxSteps    int
	TurnTimeout time.Duration
	Now         func() time.Time
	// Runs, when set, is incremented for the lifetime of the turn goroutine.
	Runs *sync.WaitGroup
}

// Orchestrator runs one chat turn for one caller.
type Orchestrator struct {
	scope RequestScope
	state domain.TurnState
	turn  *Turn
}

// NewOrchestrator creates an orchestrator from an explicit scope.
func NewOrchestrator(scope RequestScope) *Orchestrator {
	if scope.MaxSteps <= 0 {
		scope.MaxSteps = 10
	}
	if scope.TurnTimeout <= 0 {
		scope.TurnTimeout = 5 * time.Minute
	}
	if scope.Now == nil {
		scope.Now = time.Now
	}
	return &Orchestrator{scope: scope, state: domain.TurnStateIdle}
}

// State returns the lifecycle state of the turn.
func (o *Orchestrator) State() domain.TurnState {
	if o.turn != nil {
		return o.turn.State()
	}
	return o.state
}

// NewOrchestrator builds the request scope for identity from the service's
// long-lived dependencies.
func (s *Service) NewOrchestrator(ctx context.Context, identity domain.Identity) *Orchestrator {
	apiKey := s.config.LLMAPIKey
	if apiKey == "" && s.config.MockMode() {
		// The mock client needs no credentials.
		apiKey = llm.ModeMock
	}
	return NewOrchestrator(RequestScope{
		Store:       s.store,
		LLM:         s.llmClient,
		APIKey:      apiKey,
		Model:       s.ActiveModel(ctx),
		Identity:    identity,
		Cache:       s.idem,
		Tools:       s.tools,
		MaxSteps:    s.config.ChatMaxSteps,
		TurnTimeout: s.config.ChatTurnTimeout,
		Now:         s.now,
		Runs:        &s.runs,
	})
}

// GetHistory returns the persisted messages for identity.
func (s *Service) GetHistory(ctx context.Context, identity domain.Identity) ([]domain.Message, error) {
	conv, err := s.store.GetConversation(ctx, identity.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv == nil {
		return []domain.Message{}, nil
	}
	return conv.Messages, nil
}

// TurnResult is either a cached reply or a running turn.
type TurnResult struct {
	Cached *domain.CachedReply
	Turn   *Turn
}

// Handle validates req and either replays a cached reply or starts a turn.
// Errors returned here happen before any output and carry a domain.Error code.
func (o *Orchestrator) Handle(ctx context.Context, req domain.ChatRequest) (*TurnResult, error) {
	if o.state != domain.TurnStateIdle {
		return nil, fmt.Errorf("orchestrator already handled a turn")
	}
	result, err := o.handle(ctx, req)
	if err != nil {
		advance(&o.state, domain.TurnStateFailed)
	}
	return result, err
}

func (o *Orchestrator) handle(ctx context.Context, req domain.ChatRequest) (*TurnResult, error) {
	advance(&o.state, domain.TurnStateIdentityResolved)

	if len(req.Messages) == 0 {
		return nil, domain.ErrMessagesRequired
	}
	for i, m := range req.Messages {
		if err := m.Validate(); err != nil {
			return nil, domain.WrapError(domain.ErrCodeValidation, http.StatusBadRequest, fmt.Sprintf("invalid message %d", i), err)
		}
	}
	text := domain.LatestUserText(req.Messages)
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, http.StatusBadRequest, "last message must be a user message with text")
	}

	if o.scope.APIKey == "" {
		return nil, domain.ErrMissingAPIKey
	}

	ticket, err := o.scope.Cache.Begin(ctx, o.scope.Identity.ConversationID, text)
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			return nil, derr
		}
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	advance(&o.state, domain.TurnStateIdempotencyChecked)
	if ticket.Cached {
		advance(&o.state, domain.TurnStateCacheHit)
		advance(&o.state, domain.TurnStateDone)
		log.Printf("INFO: replaying cached turn for %s", o.scope.Identity.ConversationID)
		return &TurnResult{Cached: &domain.CachedReply{
			Role:    domain.RoleAssistant,
			Content: ticket.Response,
			Cached:  true,
		}}, nil
	}

	tasks, err := o.scope.Store.ListTasks(ctx)
	if err != nil {
		o.scope.Cache.Release(context.Background(), ticket.Key)
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	history := normalizeHistory(req.Messages)
	messages := toLLMMessages(buildSystemPrompt(tasks), history)

	advance(&o.state, domain.TurnStateInvoking)
	turn := newTurn()
	o.turn = turn
	if o.scope.Runs != nil {
		o.scope.Runs.Add(1)
	}
	go o.run(turn, ticket.Key, history, messages)
	return &TurnResult{Turn: turn}, nil
}

// normalizeHistory drops client system messages and fills missing ids.
func normalizeHistory(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			continue
		}
		if m.ID == "" {
			m.ID = "msg_" + uuid.New().String()[:8]
		}
		out = append(out, m)
	}
	return out
}

// run drives the model until it stops calling tools or the step budget is
// spent. It is detached from the request so finalize runs even after the
// client disconnects.
func (o *Orchestrator) run(turn *Turn, key string, history []domain.Message, messages []llm.ChatMessage) {
	if o.scope.Runs != nil {
		defer o.scope.Runs.Done()
	}
	defer turn.finish()

	ctx, cancel := context.WithTimeout(context.Background(), o.scope.TurnTimeout)
	defer cancel()

	startedAt := o.scope.Now()
	messageID := "msg_" + uuid.New().String()[:8]
	toolDefs := toolDefinitions(o.scope.Tools)

	turn.emit(domain.StreamChunk{Type: domain.ChunkTypeStart, MessageID: messageID})
	turn.setState(domain.TurnStateStreaming)

	var (
		parts        []domain.Part
		reply        strings.Builder
		finishReason string
		usage        domain.UsageData
		steps        int
	)

	for steps < o.scope.MaxSteps {
		steps++
		acc := llm.NewAccumulator()
		req := &llm.ChatCompletionRequest{
			Model:    o.scope.Model,
			Messages: messages,
			Tools:    toolDefs,
		}
		_, err := o.scope.LLM.CreateChatCompletionStream(ctx, req, func(chunk *llm.StreamChunk) error {
			d := acc.Add(chunk)
			if d.Reasoning != "" {
				turn.emit(domain.StreamChunk{Type: domain.ChunkTypeReasoningDelta, MessageID: messageID, Delta: d.Reasoning})
			}
			if d.Content != "" {
				turn.emit(domain.StreamChunk{Type: domain.ChunkTypeTextDelta, MessageID: messageID, Delta: d.Content})
			}
			return nil
		})
		if err != nil {
			o.abort(turn, key, messageID, err)
			return
		}
		if u := acc.Usage(); u != nil {
			usage.PromptTokens += u.PromptTokens
			usage.CompletionTokens += u.CompletionTokens
			usage.TotalTokens += u.TotalTokens
		}

		if r := acc.Reasoning(); r != "" {
			parts = append(parts, domain.Part{Type: domain.PartTypeReasoning, Text: r})
		}
		if c := acc.Content(); c != "" {
			parts = append(parts, domain.Part{Type: domain.PartTypeText, Text: c})
			reply.WriteString(c)
		}

		calls := acc.ToolCalls()
		finishReason = acc.FinishReason()
		if len(calls) == 0 {
			break
		}

		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = "call_" + uuid.New().String()[:8]
			}
		}
		assistant := acc.Message()
		assistant.ToolCalls = calls
		messages = append(messages, assistant)

		for _, call := range calls {
			input := toolInput(call.Function.Arguments)
			turn.emit(domain.StreamChunk{
				Type:       domain.ChunkTypeToolCall,
				MessageID:  messageID,
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				Input:      input,
			})
			parts = append(parts, domain.Part{
				Type:       domain.PartTypeToolCall,
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				Input:      input,
			})

			output, isError := o.executeTool(ctx, call)
			turn.emit(domain.StreamChunk{
				Type:       domain.ChunkTypeToolResult,
				MessageID:  messageID,
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				Output:     output,
				IsError:    isError,
			})
			parts = append(parts, domain.Part{
				Type:       domain.PartTypeToolResult,
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				Output:     output,
				IsError:    isError,
			})
			messages = append(messages, llm.ChatMessage{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    string(output),
			})
		}

		if steps == o.scope.MaxSteps {
			log.Printf("WARN: chat turn for %s reached the step limit of %d", o.scope.Identity.ConversationID, o.scope.MaxSteps)
			finishReason = "max_steps"
		}
	}

	usage.Steps = steps
	usage.DurationMs = int(o.scope.Now().Sub(startedAt).Milliseconds())
	o.finalize(turn, key, messageID, history, parts, reply.String())
	turn.emit(domain.StreamChunk{
		Type:         domain.ChunkTypeFinish,
		MessageID:    messageID,
		FinishReason: finishReason,
		Usage:        &usage,
	})
	turn.setState(domain.TurnStateDone)
}

func (o *Orchestrator) executeTool(ctx context.Context, call llm.ToolCall) (json.RawMessage, bool) {
	args := json.RawMessage(call.Function.Arguments)
	if strings.TrimSpace(call.Function.Arguments) == "" {
		args = json.RawMessage(`{}`)
	}
	output, err := o.scope.Tools.Execute(ctx, call.Function.Name, args)
	if err != nil {
		log.Printf("WARN: tool %s failed: %v", call.Function.Name, err)
		return tools.ErrorOutput(err), true
	}
	return output, false
}

// finalize persists the transcript and the idempotency record. Both are
// best-effort: the reply has already been streamed.
func (o *Orchestrator) finalize(turn *Turn, key, messageID string, history []domain.Message, parts []domain.Part, reply string) {
	turn.setState(domain.TurnStateFinalizing)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if parts == nil {
		parts = []domain.Part{}
	}
	snapshot := make([]domain.Message, 0, len(history)+1)
	snapshot = append(snapshot, history...)
	snapshot = append(snapshot, domain.Message{ID: messageID, Role: domain.RoleAssistant, Parts: parts})

	if err := o.scope.Store.SaveConversation(ctx, &domain.Conversation{
		ID:        o.scope.Identity.ConversationID,
		Messages:  snapshot,
		UpdatedAt: o.scope.Now(),
	}); err != nil {
		log.Printf("ERROR: failed to save conversation %s: %v", o.scope.Identity.ConversationID, err)
	}

	o.scope.Cache.Store(ctx, key, reply)
}

// abort ends a turn after a model error. Nothing is persisted and the
// reservation is released so a resubmission can run.
func (o *Orchestrator) abort(turn *Turn, key, messageID string, err error) {
	log.Printf("ERROR: chat turn for %s failed: %v", o.scope.Identity.ConversationID, err)
	turn.fail(err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o.scope.Cache.Release(ctx, key)

	turn.emit(domain.StreamChunk{
		Type:      domain.ChunkTypeError,
		MessageID: messageID,
		Code:      string(domain.ErrCodeLLM),
		ErrorText: err.Error(),
	})
}
