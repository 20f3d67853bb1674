// Package model defines the completion gateway abstraction: a thin adapter
// that submits a message sequence plus tool definitions to an external
// completion backend and returns a normalized result. Provider specific wire
// shapes live in the subpackages (openai, anthropic); downstream logic only
// ever sees Result.
package model

import (
	"context"
	"fmt"

	"github.com/swilltec/weather/chat"
	"github.com/swilltec/weather/tool"
)

// Result is the normalized outcome of one completion call: plain text
// (possibly empty) and the ordered tool calls the backend requested.
type Result struct {
	Text      string          `json:"text"`
	ToolCalls []chat.ToolCall `json:"tool_calls,omitempty"`
}

// NeedsContinuation reports whether the backend requested tool execution,
// meaning the conversation needs another round before a final answer exists.
func (r *Result) NeedsContinuation() bool { return len(r.ToolCalls) > 0 }

// Info contains metadata about a gateway implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Gateway is the minimal interface the orchestrator requires from a
// completion backend adapter. Implementations must not mutate the input
// messages and must not retry internally; retry policy belongs to the caller.
type Gateway interface {
	// Complete submits the messages and tool definitions and returns the
	// normalized result. Transport, authentication and rate-limit failures
	// are reported as *UpstreamError.
	Complete(ctx context.Context, messages []chat.Message, tools []tool.Definition) (*Result, error)

	// Info returns information about the gateway implementation.
	Info() Info
}

// UpstreamError wraps a completion backend failure: unreachable endpoint,
// rejected credentials, or rate limiting. It is surfaced to the orchestrator's
// caller unretried.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstreamError wraps err as an upstream failure of the given provider.
func NewUpstreamError(provider string, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, Err: err}
}
