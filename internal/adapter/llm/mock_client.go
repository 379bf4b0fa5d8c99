package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockStep scripts one model invocation of a MockClient.
type MockStep struct {
	Reasoning string
	Content   string
	ToolCalls []ToolCall
	// Err is returned after Content has been streamed.
	Err error
	// Delay is slept before each chunk.
	Delay time.Duration
}

// MockClient is a mock implementation of LLMClient. It replays scripted
// steps in order and echoes the last user message once the script is spent.
type MockClient struct {
	mu       sync.Mutex
	script   []MockStep
	requests []ChatCompletionRequest
	models   []Model
}

// NewMockClient creates a new mock LLM client.
func NewMockClient(steps ...MockStep) *MockClient {
	return &MockClient{script: steps}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// Calls returns how many completions were requested.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockClient) Requests() []ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatCompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// SetModels overrides the model list.
func (m *MockClient) SetModels(models []Model) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = models
}

func (m *MockClient) next(req *ChatCompletionRequest) MockStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, *req)
	if len(m.script) == 0 {
		return MockStep{Content: m.generateMockResponse(req)}
	}
	step := m.script[0]
	m.script = m.script[1:]
	return step
}

// CreateChatCompletion returns the next scripted response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	step := m.next(req)
	if step.Err != nil {
		return nil, step.Err
	}
	finish := "stop"
	if len(step.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{{
			Message: &ChatMessage{
				Role:      "assistant",
				Content:   step.Content,
				Reasoning: step.Reasoning,
				ToolCalls: step.ToolCalls,
			},
			FinishReason: finish,
		}},
		Usage: m.usage(req, step.Content),
	}, nil
}

// CreateChatCompletionStream streams the next scripted response in small chunks.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	step := m.next(req)
	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())

	emit := func(delta *ChatMessage, finish string) error {
		if step.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(step.Delay):
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return callback(&StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: time.Now().Unix(),
			Model:   req.Model,
			Choices: []Choice{{Delta: delta, FinishReason: finish}},
		})
	}

	if step.Reasoning != "" {
		if err := emit(&ChatMessage{Role: "assistant", Reasoning: step.Reasoning}, ""); err != nil {
			return nil, err
		}
	}
	for _, part := range m.splitIntoChunks(step.Content, 10) {
		if part == "" {
			continue
		}
		if err := emit(&ChatMessage{Role: "assistant", Content: part}, ""); err != nil {
			return nil, err
		}
	}
	if step.Err != nil {
		return nil, step.Err
	}
	// Each tool call arrives as a header chunk followed by argument fragments.
	for i, tc := range step.ToolCalls {
		idx := i
		head := ToolCall{Index: &idx, ID: tc.ID, Type: "function", Function: ToolCallFunction{Name: tc.Function.Name}}
		if err := emit(&ChatMessage{Role: "assistant", ToolCalls: []ToolCall{head}}, ""); err != nil {
			return nil, err
		}
		for _, frag := range m.splitIntoChunks(tc.Function.Arguments, 16) {
			part := ToolCall{Index: &idx, Function: ToolCallFunction{Arguments: frag}}
			if err := emit(&ChatMessage{ToolCalls: []ToolCall{part}}, ""); err != nil {
				return nil, err
			}
		}
	}

	finish := "stop"
	if len(step.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	if err := emit(&ChatMessage{}, finish); err != nil {
		return nil, err
	}
	return m.usage(req, step.Content), nil
}

// ListModels returns a list of mock models.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.models != nil {
		return m.models, nil
	}
	return []Model{
		{ID: "mock/small", Object: "model", Created: time.Now().Unix(), OwnedBy: "mock"},
		{ID: "mock/large", Object: "model", Created: time.Now().Unix(), OwnedBy: "mock"},
	}, nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

func (m *MockClient) usage(req *ChatCompletionRequest, content string) *Usage {
	prompt := 0
	for _, msg := range req.Messages {
		prompt += len(msg.Content) / 4
	}
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: len(content) / 4,
		TotalTokens:      prompt + len(content)/4,
	}
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func (m *MockClient) splitIntoChunks(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}

	var chunks []string
	for i := 0; i < len(s); i += chunkSize {
		end := i + chunkSize
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
