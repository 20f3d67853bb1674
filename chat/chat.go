// Package chat defines the conversation message model shared by the
// orchestrator, the completion gateways and the persistence layer, together
// with the history sanitization pass that keeps stored histories submittable
// to completion backends.
package chat

import "encoding/json"

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleSystem marks instruction messages prepended to a conversation.
	RoleSystem Role = "system"
	// RoleUser marks end-user messages.
	RoleUser Role = "user"
	// RoleAssistant marks model-authored messages, including tool call requests.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool result messages answering an assistant tool call.
	RoleTool Role = "tool"
)

// ToolCall is a function invocation request emitted by the completion backend
// inside an assistant message. The ID is opaque and unique within the turn;
// Arguments is the raw JSON payload as produced by the backend, deliberately
// not validated at this layer.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult is the outcome of dispatching a single ToolCall. Value holds
// either the handler's return payload or a structured error payload; errors
// never propagate past the dispatcher boundary.
type ToolResult struct {
	ToolCallID string         `json:"tool_call_id"`
	Name       string         `json:"name"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Value      any            `json:"value"`
}

// Message is a single conversation turn. ToolCalls is populated only on
// assistant messages that requested tool execution; ToolCallID only on tool
// messages, linking back to the originating call.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// System constructs a system message.
func System(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// User constructs a user message.
func User(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// Assistant constructs a plain assistant message without tool calls.
func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// AssistantToolCalls constructs an assistant message carrying tool call
// requests alongside optional text content.
func AssistantToolCalls(text string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolResponse constructs a tool message answering the given call id. The
// payload is serialized to JSON; values that fail to marshal fall back to an
// empty object so a response message is always produced.
func ToolResponse(callID string, value any) Message {
	raw, err := json.Marshal(value)
	if err != nil {
		raw = []byte("{}")
	}
	return Message{Role: RoleTool, Content: string(raw), ToolCallID: callID}
}

// HasToolCalls reports whether the message is an assistant turn requesting
// tool execution.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}
