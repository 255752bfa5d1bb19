package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/hupe1980/ragstream/core"
	"github.com/hupe1980/ragstream/internal/util"
)

// ParamMiddleware rewrites model-supplied arguments with request-scoped
// values before a tool executes. Middleware runs inside the Registry, so an
// override is structural rather than trusted to each tool's own discipline.
type ParamMiddleware func(reqCtx *core.RequestContext, toolName string, args map[string]any)

// Registry owns the set of declared tools available to a generation session
// and converts each function call into exactly one ToolCallResult. Tool-level
// failures (unknown tool, bad parameters, tool-internal errors) are non-fatal
// and become error results visible to the model; only cancellation of the
// whole request context terminates the session, which the session itself
// observes on the context.
type Registry struct {
	tools      map[string]Tool
	middleware []ParamMiddleware
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the previous tool.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Use appends a parameter middleware; registration order defines execution order.
func (r *Registry) Use(mw ParamMiddleware) {
	r.middleware = append(r.middleware, mw)
}

// Tools returns the registered tools keyed by name.
func (r *Registry) Tools() map[string]Tool { return r.tools }

// Definitions renders the registered tools as model tool declarations,
// sorted by name so request payloads stay deterministic.
func (r *Registry) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// ToolDefinition is the declaration shape handed to model adapters.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Dispatch validates and executes one function call, always producing exactly
// one ToolCallResult for the given call id. It never panics; tool panics are
// recovered and reported as execution errors.
func (r *Registry) Dispatch(reqCtx *core.RequestContext, call core.FunctionCall) core.ToolCallResult {
	logger := reqCtx.Logger()

	impl, ok := r.tools[call.Name]
	if !ok {
		logger.Warn("tool.dispatch.unknown_tool", "tool", call.Name, "call_id", call.ID)
		return errorResult(call, NewToolError(call.Name, fmt.Sprintf("tool %q is not registered", call.Name), CodeUnknownTool))
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		logger.Warn("tool.dispatch.bad_arguments", "tool", call.Name, "call_id", call.ID, "error", err.Error())
		return errorResult(call, &ToolError{
			Tool:    call.Name,
			Message: fmt.Sprintf("failed to parse arguments: %v", err),
			Code:    CodeInvalidParameters,
		})
	}

	if err := util.ValidateParameters(args, impl.Parameters()); err != nil {
		logger.Warn("tool.dispatch.validation_failed", "tool", call.Name, "call_id", call.ID, "error", err.Error())
		return errorResult(call, &ToolError{
			Tool:    call.Name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeInvalidParameters,
			Details: err,
		})
	}

	for _, mw := range r.middleware {
		mw(reqCtx, call.Name, args)
	}

	start := time.Now()
	result, err := r.execute(reqCtx, impl, args)
	dur := time.Since(start)

	if err != nil {
		toolErr := asToolError(call.Name, err)
		logger.Error("tool.dispatch.error",
			"tool", call.Name,
			"call_id", call.ID,
			"code", toolErr.Code,
			"duration_ms", dur.Milliseconds(),
			"error", toolErr.Message,
		)
		return errorResult(call, toolErr)
	}

	logger.Info("tool.dispatch.success", "tool", call.Name, "call_id", call.ID, "duration_ms", dur.Milliseconds())

	return core.ToolCallResult{CallID: call.ID, ToolName: call.Name, Result: result}
}

// execute runs the tool with panic safety.
func (r *Registry) execute(reqCtx *core.RequestContext, impl Tool, args map[string]any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reqCtx.Logger().Error("tool.dispatch.panic", "tool", impl.Name(), "recover", rec, "stack", string(debug.Stack()))
			err = &ToolError{
				Tool:    impl.Name(),
				Message: fmt.Sprintf("tool panicked: %v", rec),
				Code:    CodeExecutionError,
			}
		}
	}()
	return impl.Call(reqCtx, args)
}

// decodeArguments parses the serialized argument payload. An empty payload is
// an empty argument map, not an error.
func decodeArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// asToolError normalizes any execution failure to a *ToolError, mapping
// cancellation onto the distinct Aborted code.
func asToolError(toolName string, err error) *ToolError {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ToolError{Tool: toolName, Message: err.Error(), Code: CodeAborted}
	}
	return &ToolError{Tool: toolName, Message: err.Error(), Code: CodeExecutionError}
}

// errorResult wraps a tool error into the result event shape.
func errorResult(call core.FunctionCall, err *ToolError) core.ToolCallResult {
	return core.ToolCallResult{
		CallID:   call.ID,
		ToolName: call.Name,
		Error:    &core.ToolErrorInfo{Code: err.Code, Message: err.Message},
	}
}
