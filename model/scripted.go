package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/ragstream/core"
)

// Turn is one scripted model turn: the responses emitted for a single
// Generate call, in order.
type Turn []Response

// ScriptedModel is a deterministic in-memory Model for tests and examples.
// Each Generate call plays back the next scripted turn. With LoopLast set the
// final turn repeats forever, which is how runaway tool-calling models are
// simulated.
type ScriptedModel struct {
	mu       sync.Mutex
	turns    []Turn
	calls    int
	loopLast bool
	info     Info
}

// ScriptedModelOptions configure a ScriptedModel.
type ScriptedModelOptions struct {
	// LoopLast replays the final turn on every Generate call past the script end.
	LoopLast bool
}

// NewScriptedModel constructs a ScriptedModel playing the given turns.
func NewScriptedModel(turns []Turn, optFns ...func(o *ScriptedModelOptions)) *ScriptedModel {
	opts := ScriptedModelOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ScriptedModel{
		turns:    turns,
		loopLast: opts.LoopLast,
		info:     Info{Name: "scripted", Provider: "test", SupportsTools: true},
	}
}

// Calls reports how many Generate calls have been made.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Model by replaying the next scripted turn.
func (m *ScriptedModel) Generate(ctx context.Context, _ Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	idx := m.calls
	m.calls++
	if idx >= len(m.turns) {
		if m.loopLast && len(m.turns) > 0 {
			idx = len(m.turns) - 1
		} else {
			idx = -1
		}
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if idx < 0 {
			errCh <- fmt.Errorf("scripted model exhausted after %d turns", len(m.turns))
			return
		}
		for _, resp := range m.turns[idx] {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case respCh <- resp:
			}
		}
	}()

	return respCh, errCh
}

// Info implements the Model interface.
func (m *ScriptedModel) Info() Info { return m.info }

// TextTurn builds a turn that streams text word-less (single delta) and ends
// with a stop finish. Convenience for tests.
func TextTurn(text string) Turn {
	return Turn{
		{Partial: true, Content: core.Content{Role: core.RoleAssistant, Parts: []core.Part{core.TextPart{Text: text}}}},
		{Content: core.Content{Role: core.RoleAssistant, Parts: []core.Part{core.TextPart{Text: text}}}, FinishReason: "stop"},
	}
}

// ToolCallTurn builds a turn whose final chunk requests the given tool calls.
func ToolCallTurn(calls ...core.FunctionCall) Turn {
	parts := make([]core.Part, 0, len(calls))
	for _, fc := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	return Turn{
		{Content: core.Content{Role: core.RoleAssistant, Parts: parts}, FinishReason: "tool_calls"},
	}
}
