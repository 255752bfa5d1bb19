package session

import (
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/ragstream/core"
	"github.com/hupe1980/ragstream/model"
	"github.com/hupe1980/ragstream/tool"
)

// State labels the session lifecycle. Transitions only move forward:
// Idle → Generating → (AwaitingTools → Generating)* → Finished | Errored.
type State int

const (
	// StateIdle is the initial state before Run is called.
	StateIdle State = iota
	// StateGenerating means the model is producing stream deltas.
	StateGenerating
	// StateAwaitingTools means dispatched tool calls are being awaited.
	StateAwaitingTools
	// StateFinished is the successful terminal state.
	StateFinished
	// StateErrored is the terminal state after an unrecoverable failure.
	StateErrored
)

// String returns the state label used in logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateAwaitingTools:
		return "awaiting_tools"
	case StateFinished:
		return "finished"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// stepLimitNote is surfaced to the client when the round-trip bound forces
// termination while the model still wants tools.
const stepLimitNote = "\n\nNote: the maximum number of tool steps was reached."

// errEmptyTurn is returned when a model stream closes without a final chunk.
var errEmptyTurn = errors.New("model stream ended without a final response")

// Options configure a GenerationSession.
type Options struct {
	// MaxSteps bounds generation↔tool round trips. Default 5.
	MaxSteps int
	// EventBufferSize sets channel buffering for emitted stream events.
	EventBufferSize int
}

// GenerationSession drives one tool-augmented generation request. It is
// single-use: construct, Run once, read the event channel to completion.
type GenerationSession struct {
	llm      model.Model
	registry *tool.Registry
	opts     Options

	mu       sync.Mutex
	state    State
	appended []core.ChatMessage
}

// New constructs an idle GenerationSession.
func New(llm model.Model, registry *tool.Registry, optFns ...func(o *Options)) *GenerationSession {
	opts := Options{
		MaxSteps:        5,
		EventBufferSize: 64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxSteps < 1 {
		opts.MaxSteps = 1
	}
	return &GenerationSession{
		llm:      llm,
		registry: registry,
		opts:     opts,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *GenerationSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AppendedMessages returns the messages produced by the run (assistant turns
// and tool responses) for transcript persistence. Valid once the event
// channel has closed.
func (s *GenerationSession) AppendedMessages() []core.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ChatMessage, len(s.appended))
	copy(out, s.appended)
	return out
}

func (s *GenerationSession) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *GenerationSession) appendMessage(msg core.ChatMessage) {
	s.mu.Lock()
	s.appended = append(s.appended, msg)
	s.mu.Unlock()
}

// Run starts the generation loop. The returned channel carries the ordered
// stream events and is closed after the terminal finished/error event. The
// caller owns reqCtx and must not reuse it for another request.
func (s *GenerationSession) Run(reqCtx *core.RequestContext, systemPrompt string, history []core.ChatMessage) <-chan core.StreamEvent {
	events := make(chan core.StreamEvent, s.opts.EventBufferSize)

	go func() {
		defer close(events)
		s.run(reqCtx, systemPrompt, history, events)
	}()

	return events
}

func (s *GenerationSession) run(
	reqCtx *core.RequestContext,
	systemPrompt string,
	history []core.ChatMessage,
	events chan<- core.StreamEvent,
) {
	logger := reqCtx.Logger()

	contents := make([]core.Content, 0, len(history))
	for _, msg := range history {
		contents = append(contents, msg.Content)
	}

	toolDefs := buildToolDefinitions(s.registry)

	for {
		s.setState(StateGenerating)

		final, err := s.generateTurn(reqCtx, systemPrompt, contents, toolDefs, events)
		if err != nil {
			s.fail(reqCtx, events, err)
			return
		}

		assistantMsg := core.NewAssistantMessage(final)
		s.appendMessage(assistantMsg)
		contents = append(contents, assistantMsg.Content)

		calls := ensureCallIDs(final.FunctionCalls())
		if len(calls) == 0 {
			s.finish(events, core.FinishReasonStop)
			return
		}

		s.setState(StateAwaitingTools)
		responses := s.dispatchTools(reqCtx, calls, events)

		if err := reqCtx.Err(); err != nil {
			s.fail(reqCtx, events, err)
			return
		}

		toolMsg := core.NewToolMessage(responses)
		s.appendMessage(toolMsg)
		contents = append(contents, toolMsg.Content)

		step := reqCtx.AdvanceStep()
		logger.Debug("session.step.complete", "step", step, "tool_calls", len(calls))

		if step >= s.opts.MaxSteps {
			logger.Info("session.step_limit.reached", "max_steps", s.opts.MaxSteps)
			events <- core.NewTextDeltaEvent(stepLimitNote)
			s.finish(events, core.FinishReasonStepLimit)
			return
		}
	}
}

// generateTurn consumes one model stream, forwarding deltas and returning the
// final aggregated assistant content of the turn.
func (s *GenerationSession) generateTurn(
	reqCtx *core.RequestContext,
	systemPrompt string,
	contents []core.Content,
	toolDefs []model.ToolDefinition,
	events chan<- core.StreamEvent,
) (core.Content, error) {
	req := model.Request{
		Instructions: systemPrompt,
		Contents:     contents,
		Tools:        toolDefs,
		Stream:       true,
	}

	respCh, errCh := s.llm.Generate(reqCtx.Context(), req)

	var final core.Content
	haveFinal := false

	for {
		select {
		case <-reqCtx.Done():
			return core.Content{}, reqCtx.Err()
		case err, ok := <-errCh:
			if ok && err != nil {
				return core.Content{}, err
			}
			// error channel closed without error; keep draining responses
			errCh = nil
		case resp, ok := <-respCh:
			if !ok {
				if !haveFinal {
					return core.Content{}, errEmptyTurn
				}
				return final, nil
			}
			if resp.Partial {
				s.forwardDeltas(resp.Content, events)
				continue
			}
			final = resp.Content
			haveFinal = true
		}
	}
}

// forwardDeltas maps partial content parts onto stream events.
func (s *GenerationSession) forwardDeltas(content core.Content, events chan<- core.StreamEvent) {
	for _, p := range content.Parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				events <- core.NewTextDeltaEvent(part.Text)
			}
		case core.ReasoningPart:
			if part.Reasoning != "" {
				events <- core.NewReasoningDeltaEvent(part.Reasoning)
			}
		}
	}
}

// dispatchTools fans the step's tool calls out to the registry, concurrently
// for multiple calls, and jointly awaits them. For every call exactly one
// started event precedes exactly one result event; events for different call
// ids may interleave.
func (s *GenerationSession) dispatchTools(
	reqCtx *core.RequestContext,
	calls []core.FunctionCall,
	events chan<- core.StreamEvent,
) []core.FunctionResponse {
	responses := make([]core.FunctionResponse, len(calls))

	g := new(errgroup.Group)
	for idx, call := range calls {
		events <- core.NewToolCallStartedEvent(call.ID, call.Name)

		g.Go(func() error {
			result := s.registry.Dispatch(reqCtx, call)
			events <- core.NewToolCallResultEvent(result)
			responses[idx] = functionResponse(call, result)
			return nil
		})
	}
	_ = g.Wait()

	return responses
}

// finish emits the terminal finished event.
func (s *GenerationSession) finish(events chan<- core.StreamEvent, reason string) {
	s.setState(StateFinished)
	events <- core.NewFinishedEvent(reason)
}

// fail logs full operator detail and emits a short error event. The stream
// merger substitutes the client-facing generic message.
func (s *GenerationSession) fail(reqCtx *core.RequestContext, events chan<- core.StreamEvent, err error) {
	s.setState(StateErrored)
	reqCtx.Logger().Error("session.errored",
		"state", StateErrored.String(),
		"steps", reqCtx.Steps(),
		"error", err.Error(),
	)
	events <- core.NewErrorEvent(userSafeMessage(reqCtx))
}

// userSafeMessage categorizes the failure without leaking provider detail.
func userSafeMessage(reqCtx *core.RequestContext) string {
	if reqCtx.Err() != nil {
		return "request cancelled"
	}
	return "generation failed"
}

// functionResponse converts a tool call result into the transcript shape the
// model consumes on the next turn.
func functionResponse(call core.FunctionCall, result core.ToolCallResult) core.FunctionResponse {
	fr := core.FunctionResponse{ID: call.ID, Name: call.Name}
	if result.Error != nil {
		fr.Error = result.Error.Message
		return fr
	}
	fr.Response = result.Result
	return fr
}

// ensureCallIDs assigns ids to calls the provider left blank so the
// started/result correlation invariant holds.
func ensureCallIDs(calls []core.FunctionCall) []core.FunctionCall {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = core.NewID()
		}
	}
	return calls
}

// buildToolDefinitions renders the registry as model tool declarations.
func buildToolDefinitions(registry *tool.Registry) []model.ToolDefinition {
	defs := registry.Definitions()
	out := make([]model.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		out = append(out, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}
