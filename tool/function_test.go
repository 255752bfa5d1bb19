package tool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ragstream/core"
)

func TestFunctionTool(t *testing.T) {
	upper := NewFunctionTool(
		"upper",
		"Uppercase a string",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(_ *core.RequestContext, args map[string]any) (any, error) {
			s, _ := args["text"].(string)
			return strings.ToUpper(s), nil
		},
	)

	registry := NewRegistry()
	registry.Register(upper)

	result := registry.Dispatch(newTestReqCtx(t), core.FunctionCall{
		ID:        "call-1",
		Name:      "upper",
		Arguments: `{"text":"hello"}`,
	})

	require.Nil(t, result.Error)
	assert.Equal(t, "HELLO", result.Result)
}

func TestFunctionToolFromStruct(t *testing.T) {
	type upperArgs struct {
		Text string `json:"text" description:"The string to uppercase"`
	}

	upper := NewFunctionToolFromStruct(
		"upper",
		"Uppercase a string",
		upperArgs{},
		func(_ *core.RequestContext, args map[string]any) (any, error) {
			s, _ := args["text"].(string)
			return strings.ToUpper(s), nil
		},
	)

	props, ok := upper.Parameters()["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "text")

	registry := NewRegistry()
	registry.Register(upper)

	// The derived schema enforces the required field through the registry.
	missing := registry.Dispatch(newTestReqCtx(t), core.FunctionCall{
		ID:        "call-1",
		Name:      "upper",
		Arguments: `{}`,
	})
	require.NotNil(t, missing.Error)
	assert.Equal(t, CodeInvalidParameters, missing.Error.Code)

	ok2 := registry.Dispatch(newTestReqCtx(t), core.FunctionCall{
		ID:        "call-2",
		Name:      "upper",
		Arguments: `{"text":"hi"}`,
	})
	require.Nil(t, ok2.Error)
	assert.Equal(t, "HI", ok2.Result)
}
