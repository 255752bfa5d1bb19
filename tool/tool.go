// Package tool implements the function / tool calling subsystem that lets the
// model invoke structured capabilities mid-generation with schema validated
// arguments, consistent error handling and request-scoped parameter
// overrides.
package tool

import (
	"fmt"

	"github.com/hupe1980/ragstream/core"
	"github.com/hupe1980/ragstream/internal/util"
)

// Tool defines a named external capability the model may invoke.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe; one Tool instance serves concurrent requests
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and
	// how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with already-validated arguments. The
	// RequestContext carries the cancellation signal and the request-scoped
	// override values; tools must never trust model-supplied values across
	// the tenant boundary.
	Call(reqCtx *core.RequestContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Tool error codes reported to the model.
const (
	// CodeUnknownTool is reported when the model names an unregistered tool.
	CodeUnknownTool = "UNKNOWN_TOOL"
	// CodeInvalidParameters is reported on argument shape mismatch.
	CodeInvalidParameters = "INVALID_PARAMETERS"
	// CodeExecutionError is reported for failures inside the tool itself.
	CodeExecutionError = "EXECUTION_ERROR"
	// CodeAborted marks a tool call cut short by request cancellation. It is
	// distinguishable from other failures so the invoker can decide whether
	// to surface it to the model or escalate.
	CodeAborted = "ABORTED"
)

// ToolError represents errors that occur during tool lookup or execution.
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
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
