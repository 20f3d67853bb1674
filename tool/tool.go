// Package tool implements the function calling subsystem: an immutable
// registry of named capabilities the completion backend may request, plus a
// generic FunctionTool adapter that exposes a plain Go function with a
// JSON-schema parameter description.
package tool

import (
	"context"
	"fmt"

	"github.com/swilltec/weather/internal/schema"
)

// Tool is a named capability that a completion backend can invoke.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case recommended) and descriptions
//   - Define a JSON schema for parameters
//   - Be safe for concurrent use; a round of tool calls may run in parallel
//     and handlers must not assume ordering relative to sibling calls
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool
	// does, provided to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	// The schema informs the completion backend; it is not a local contract.
	Parameters() map[string]any

	// Call executes the tool with arguments decoded from the backend's JSON
	// payload. Errors are contained by the dispatcher and surfaced to the
	// model as structured error payloads.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ValidationError reports a schema/argument mismatch.
type ValidationError = schema.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
