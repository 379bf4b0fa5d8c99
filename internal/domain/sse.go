package domain

import "encoding/json"

// StreamChunk is one event of a streamed chat turn.
type StreamChunk struct {
	Type         ChunkType       `json:"type"`
	MessageID    string          `json:"messageId,omitempty"`
	Delta        string          `json:"delta,omitempty"`
	ToolCallID   string          `json:"toolCallId,omitempty"`
	ToolName     string          `json:"toolName,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	IsError      bool            `json:"isError,omitempty"`
	Code         string          `json:"code,omitempty"`
	ErrorText    string          `json:"errorText,omitempty"`
	FinishReason string          `json:"finishReason,omitempty"`
	Usage        *UsageData      `json:"usage,omitempty"`
}

// UsageData represents token usage information.
type UsageData struct {
	PromptTokens     int `json:"promptTokens,omitempty"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens,omitempty"`
	Steps            int `json:"steps,omitempty"`
	DurationMs       int `json:"durationMs,omitempty"`
}
