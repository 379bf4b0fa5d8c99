package service

import (
	"encoding/json"

	"github.com/jjspscl/hunt-st-assessment/internal/adapter/llm"
	"github.com/jjspscl/hunt-st-assessment/internal/domain"
	"github.com/jjspscl/hunt-st-assessment/internal/tools"
)

// toLLMMessages converts a conversation into completion messages. Reasoning
// parts and client system messages are dropped; assistant tool calls and
// their results are replayed in order.
func toLLMMessages(systemPrompt string, history []domain.Message) []llm.ChatMessage {
	out := []llm.ChatMessage{{Role: "system", Content: systemPrompt}}
	for _, msg := range history {
		switch msg.Role {
		case domain.RoleUser:
			out = append(out, llm.ChatMessage{Role: "user", Content: msg.Text()})
		case domain.RoleAssistant:
			out = append(out, assistantMessages(msg)...)
		}
	}
	return out
}

func assistantMessages(msg domain.Message) []llm.ChatMessage {
	var out []llm.ChatMessage
	cur := llm.ChatMessage{Role: "assistant"}
	flush := func() {
		if cur.Content != "" || len(cur.ToolCalls) > 0 {
			out = append(out, cur)
		}
		cur = llm.ChatMessage{Role: "assistant"}
	}

	for _, p := range msg.Parts {
		switch p.Type {
		case domain.PartTypeText:
			if len(cur.ToolCalls) > 0 {
				flush()
			}
			cur.Content += p.Text
		case domain.PartTypeToolCall:
			cur.ToolCalls = append(cur.ToolCalls, llm.ToolCall{
				ID:   p.ToolCallID,
				Type: "function",
				Function: llm.ToolCallFunction{
					Name:      p.ToolName,
					Arguments: rawArguments(p.Input),
				},
			})
		case domain.PartTypeToolResult:
			flush()
			out = append(out, llm.ChatMessage{
				Role:       "tool",
				ToolCallID: p.ToolCallID,
				Content:    string(p.Output),
			})
		}
	}
	flush()
	return out
}

// rawArguments turns a stored tool input back into the argument string the model sent.
func rawArguments(input json.RawMessage) string {
	if len(input) == 0 {
		return "{}"
	}
	var s string
	if json.Unmarshal(input, &s) == nil {
		return s
	}
	return string(input)
}

// toolInput stores model arguments as JSON, quoting them when they are malformed.
func toolInput(arguments string) json.RawMessage {
	if arguments == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	quoted, _ := json.Marshal(arguments)
	return quoted
}

func toolDefinitions(r *tools.Registry) []llm.Tool {
	defs := r.Definitions()
	out := make([]llm.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}
