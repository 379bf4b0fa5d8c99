package llm

import "strings"

// Accumulator merges stream deltas into a complete assistant message.
type Accumulator struct {
	content      strings.Builder
	reasoning    strings.Builder
	calls        []ToolCall
	byIndex      map[int]int
	finishReason string
	usage        *Usage
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{byIndex: make(map[int]int)}
}

// Delta is the new text carried by one chunk.
type Delta struct {
	Content   string
	Reasoning string
}

// Add folds chunk into the accumulated message and returns its text deltas.
func (a *Accumulator) Add(chunk *StreamChunk) Delta {
	if chunk.Usage != nil {
		a.usage = chunk.Usage
	}
	var d Delta
	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			continue
		}
		if choice.FinishReason != "" {
			a.finishReason = choice.FinishReason
		}
		msg := choice.Delta
		if msg == nil {
			msg = choice.Message
		}
		if msg == nil {
			continue
		}
		if msg.Content != "" {
			a.content.WriteString(msg.Content)
			d.Content += msg.Content
		}
		if r := msg.ReasoningText(); r != "" {
			a.reasoning.WriteString(r)
			d.Reasoning += r
		}
		for _, tc := range msg.ToolCalls {
			a.addToolCall(tc)
		}
	}
	return d
}

func (a *Accumulator) addToolCall(tc ToolCall) {
	pos := -1
	switch {
	case tc.Index != nil:
		if p, ok := a.byIndex[*tc.Index]; ok {
			pos = p
		}
	case len(a.calls) > 0 && (tc.ID == "" || tc.ID == a.calls[len(a.calls)-1].ID):
		pos = len(a.calls) - 1
	}

	if pos < 0 {
		a.calls = append(a.calls, ToolCall{ID: tc.ID, Type: "function"})
		pos = len(a.calls) - 1
		if tc.Index != nil {
			a.byIndex[*tc.Index] = pos
		}
	}

	call := &a.calls[pos]
	if call.ID == "" {
		call.ID = tc.ID
	}
	if call.Function.Name == "" {
		call.Function.Name = tc.Function.Name
	}
	call.Function.Arguments += tc.Function.Arguments
}

// Content returns the accumulated assistant text.
func (a *Accumulator) Content() string {
	return a.content.String()
}

// Reasoning returns the accumulated reasoning text.
func (a *Accumulator) Reasoning() string {
	return a.reasoning.String()
}

// ToolCalls returns the accumulated tool calls in stream order.
func (a *Accumulator) ToolCalls() []ToolCall {
	out := make([]ToolCall, len(a.calls))
	copy(out, a.calls)
	return out
}

// FinishReason returns the last finish reason seen.
func (a *Accumulator) FinishReason() string {
	return a.finishReason
}

// Usage returns the usage reported by the stream, if any.
func (a *Accumulator) Usage() *Usage {
	return a.usage
}

// Message returns the accumulated assistant message.
func (a *Accumulator) Message() ChatMessage {
	return ChatMessage{
		Role:      "assistant",
		Content:   a.Content(),
		ToolCalls: a.ToolCalls(),
	}
}
