package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query     string `json:"query" description:"The search query"`
	Namespace string `json:"namespace"`
	Limit     *int   `json:"limit,omitempty"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(searchArgs{})

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "query")
	require.Contains(t, props, "namespace")
	require.Contains(t, props, "limit")

	query, ok := props["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "The search query", query["description"])

	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.Contains(t, required, "query")
	assert.Contains(t, required, "namespace")
	assert.NotContains(t, required, "limit")
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
			"limit": map[string]any{"type": "integer"},
		},
		"required": []string{"query"},
	}

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{name: "valid", args: map[string]any{"query": "hello"}},
		{name: "valid with optional", args: map[string]any{"query": "hello", "limit": float64(3)}},
		{name: "missing required", args: map[string]any{"limit": float64(3)}, wantErr: true},
		{name: "wrong type", args: map[string]any{"query": 42}, wantErr: true},
		{name: "extra field tolerated", args: map[string]any{"query": "hello", "unknown": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParameters(tt.args, schema)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateParametersRequiredAsAnySlice(t *testing.T) {
	// Schemas decoded from JSON carry required as []any.
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []any{"query"},
	}

	assert.Error(t, ValidateParameters(map[string]any{}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"query": "x"}, schema))
}
