package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Part is one typed element of a message. Type selects which fields are set:
// text and reasoning use Text; tool-call uses ToolCallID, ToolName and Input;
// tool-result uses ToolCallID, ToolName, Output and IsError.
type Part struct {
	Type       PartType        `json:"type"`
	Text       string          `json:"text,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
}

// Validate checks that the part carries the fields its type requires.
func (p Part) Validate() error {
	switch p.Type {
	case PartTypeText, PartTypeReasoning:
		return nil
	case PartTypeToolCall:
		if p.ToolCallID == "" || p.ToolName == "" {
			return fmt.Errorf("tool-call part requires toolCallId and toolName")
		}
	case PartTypeToolResult:
		if p.ToolCallID == "" {
			return fmt.Errorf("tool-result part requires toolCallId")
		}
	default:
		return fmt.Errorf("unknown part type %q", p.Type)
	}
	return nil
}

// Message is a single conversation entry.
type Message struct {
	ID    string `json:"id,omitempty"`
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// Validate checks the role and every part of m.
func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return fmt.Errorf("unknown role %q", m.Role)
	}
	for i, p := range m.Parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}
	return nil
}

// Text joins the text parts of m.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// LatestUserText returns the text of the last message when it is a user turn.
func LatestUserText(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	last := messages[len(messages)-1]
	if last.Role != RoleUser {
		return ""
	}
	return last.Text()
}

// Conversation is the persisted snapshot of one conversation.
type Conversation struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IdentitySource records how a conversation identity was derived.
type IdentitySource string

const (
	IdentitySourceSession   IdentitySource = "session"
	IdentitySourceIP        IdentitySource = "ip"
	IdentitySourceAnonymous IdentitySource = "anonymous"
)

// Identity is the resolved caller of a chat request.
type Identity struct {
	ConversationID string         `json:"conversationId"`
	Source         IdentitySource `json:"source"`
}
