package core

// EventType discriminates the StreamEvent variants.
type EventType string

// Stream event variants. Ordering within the outbound stream preserves
// emission order; events for different call ids may interleave but events for
// the same call id are strictly ordered (started before result).
const (
	EventTextDelta       EventType = "text-delta"
	EventReasoningDelta  EventType = "reasoning-delta"
	EventToolCallStarted EventType = "tool-call-started"
	EventToolCallResult  EventType = "tool-call-result"
	EventError           EventType = "error"
	EventFinished        EventType = "finished"
)

// ToolCallInfo identifies a tool invocation announced mid-stream.
type ToolCallInfo struct {
	CallID   string `json:"call_id"`
	ToolName string `json:"tool_name"`
}

// ToolErrorInfo carries a categorized tool failure surfaced to the model.
type ToolErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToolCallResult is the outcome of one tool call. Exactly one of Result /
// Error is set. CallID corresponds to exactly one prior ToolCallInfo in the
// same session.
type ToolCallResult struct {
	CallID   string         `json:"call_id"`
	ToolName string         `json:"tool_name"`
	Result   any            `json:"result,omitempty"`
	Error    *ToolErrorInfo `json:"error,omitempty"`
}

// StreamEvent is one unit of the ordered outbound sequence describing
// generation or tool-call progress. The zero-value fields of unrelated
// variants are omitted from the JSON encoding.
type StreamEvent struct {
	Type           EventType       `json:"type"`
	TextDelta      string          `json:"text_delta,omitempty"`
	ReasoningDelta string          `json:"reasoning_delta,omitempty"`
	ToolCall       *ToolCallInfo   `json:"tool_call,omitempty"`
	ToolResult     *ToolCallResult `json:"tool_result,omitempty"`
	ErrorMessage   string          `json:"error,omitempty"`
	FinishReason   string          `json:"finish_reason,omitempty"`
}

// Finish reasons reported on the terminal finished event.
const (
	FinishReasonStop      = "stop"
	FinishReasonStepLimit = "step-limit"
)

// NewTextDeltaEvent wraps an incremental text fragment.
func NewTextDeltaEvent(delta string) StreamEvent {
	return StreamEvent{Type: EventTextDelta, TextDelta: delta}
}

// NewReasoningDeltaEvent wraps an incremental reasoning fragment.
func NewReasoningDeltaEvent(delta string) StreamEvent {
	return StreamEvent{Type: EventReasoningDelta, ReasoningDelta: delta}
}

// NewToolCallStartedEvent announces that a tool call has been dispatched.
func NewToolCallStartedEvent(callID, toolName string) StreamEvent {
	return StreamEvent{Type: EventToolCallStarted, ToolCall: &ToolCallInfo{CallID: callID, ToolName: toolName}}
}

// NewToolCallResultEvent records the completion outcome of a tool call.
func NewToolCallResultEvent(result ToolCallResult) StreamEvent {
	return StreamEvent{Type: EventToolCallResult, ToolResult: &result}
}

// NewErrorEvent wraps a user-safe error message. Operator detail never rides
// on this event.
func NewErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, ErrorMessage: message}
}

// NewFinishedEvent terminates the stream with the given finish reason.
func NewFinishedEvent(reason string) StreamEvent {
	return StreamEvent{Type: EventFinished, FinishReason: reason}
}
