package ragstream_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ragstream"
	"github.com/hupe1980/ragstream/core"
	"github.com/hupe1980/ragstream/model"
	"github.com/hupe1980/ragstream/session"
	"github.com/hupe1980/ragstream/tool"
)

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echo a message" }
func (echoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"msg": map[string]any{"type": "string"},
		},
		"required": []string{"msg"},
	}
}
func (echoTool) Call(_ *core.RequestContext, args map[string]any) (any, error) {
	return args["msg"], nil
}

func newOrchestrator(llm model.Model) *ragstream.Orchestrator {
	registry := tool.NewRegistry()
	registry.Use(tool.NamespaceOverride())
	registry.Register(echoTool{})

	return ragstream.New(map[string]model.Model{"scripted": llm}, registry, func(o *ragstream.Options) {
		o.DefaultModel = "scripted"
	})
}

func TestChatSync(t *testing.T) {
	orch := newOrchestrator(model.NewScriptedModel([]model.Turn{
		model.ToolCallTurn(core.FunctionCall{ID: "call-1", Name: "echo", Arguments: `{"msg":"hi"}`}),
		model.TextTurn("The tool said hi."),
	}))

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	text, events, err := orch.ChatSync(reqCtx, "", "", []core.ChatMessage{
		core.NewUserMessage("use the tool"),
	})
	require.NoError(t, err)

	assert.Equal(t, "The tool said hi.", text)
	require.NotEmpty(t, events)
	assert.Equal(t, core.EventFinished, events[len(events)-1].Type)
}

func TestChatSyncSurfacesError(t *testing.T) {
	orch := newOrchestrator(model.NewScriptedModel(nil))

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	_, _, err := orch.ChatSync(reqCtx, "", "", []core.ChatMessage{
		core.NewUserMessage("hi"),
	})
	require.Error(t, err)
}

func TestStreamUnknownModel(t *testing.T) {
	orch := newOrchestrator(model.NewScriptedModel(nil))

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	_, err := orch.Stream(reqCtx, "nope", "", []core.ChatMessage{core.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
}

func TestStreamRunState(t *testing.T) {
	orch := newOrchestrator(model.NewScriptedModel([]model.Turn{
		model.TextTurn("Hello world"),
	}))

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	run, err := orch.Stream(reqCtx, "", "", []core.ChatMessage{core.NewUserMessage("hi")})
	require.NoError(t, err)

	for range run.Events {
	}

	assert.Equal(t, session.StateFinished, run.State())
	assert.Len(t, run.AppendedMessages(), 1)
}
