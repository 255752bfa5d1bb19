package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ragstream/core"
	"github.com/hupe1980/ragstream/embedding"
	"github.com/hupe1980/ragstream/vectorindex"
)

type fakeEmbedder struct {
	vec embedding.Vector
	err error
}

func (e *fakeEmbedder) Embed(_ context.Context, _ string) (embedding.Vector, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

type fakeIndex struct {
	matches []vectorindex.Match
	err     error

	lastNamespace string
	lastTopK      int
}

func (i *fakeIndex) Query(_ context.Context, _ embedding.Vector, namespace string, topK int) ([]vectorindex.Match, error) {
	i.lastNamespace = namespace
	i.lastTopK = topK
	if i.err != nil {
		return nil, i.err
	}
	return i.matches, nil
}

func TestRetrievalUsesEnforcedNamespace(t *testing.T) {
	index := &fakeIndex{}
	rt := NewRetrievalTool(&fakeEmbedder{vec: embedding.Vector{0.1}}, index)

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	// The model asked for someone else's namespace; the request scope wins.
	_, err := rt.Call(reqCtx, map[string]any{
		"query":     "quarterly report",
		"namespace": "tenant-b",
	})
	require.NoError(t, err)

	assert.Equal(t, "tenant-a", index.lastNamespace)
	assert.Equal(t, DefaultRetrievalLimit, index.lastTopK)
}

func TestNamespaceOverrideMiddleware(t *testing.T) {
	mw := NamespaceOverride()
	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	tests := []struct {
		name string
		args map[string]any
	}{
		{name: "foreign namespace", args: map[string]any{"namespace": "tenant-b"}},
		{name: "matching namespace", args: map[string]any{"namespace": "tenant-a"}},
		{name: "missing namespace", args: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw(reqCtx, RetrievalToolName, tt.args)
			assert.Equal(t, "tenant-a", tt.args["namespace"])
		})
	}
}

func TestNamespaceOverrideIgnoresOtherTools(t *testing.T) {
	mw := NamespaceOverride()
	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	args := map[string]any{"namespace": "whatever"}
	mw(reqCtx, WeatherToolName, args)

	assert.Equal(t, "whatever", args["namespace"])
}

func TestRetrievalZeroMatches(t *testing.T) {
	rt := NewRetrievalTool(&fakeEmbedder{vec: embedding.Vector{0.1}}, &fakeIndex{})

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	out, err := rt.Call(reqCtx, map[string]any{"query": "nothing matches this"})
	require.NoError(t, err)

	output, ok := out.(RetrievalOutput)
	require.True(t, ok)

	assert.Empty(t, output.Results)
	assert.Equal(t, "Found 0 relevant matches from 0 different sources.", output.Summary)
}

func TestRetrievalCountsDistinctSources(t *testing.T) {
	index := &fakeIndex{matches: []vectorindex.Match{
		{ID: "a", Score: 0.91, Metadata: map[string]any{"content": "first", "source": "doc-1"}},
		{ID: "b", Score: 0.88, Metadata: map[string]any{"content": "second", "source": "doc-1"}},
		{ID: "c", Score: 0.80, Metadata: map[string]any{"content": "third", "source": "doc-2"}},
	}}
	rt := NewRetrievalTool(&fakeEmbedder{vec: embedding.Vector{0.1}}, index)

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	out, err := rt.Call(reqCtx, map[string]any{"query": "report"})
	require.NoError(t, err)

	output := out.(RetrievalOutput)
	require.Len(t, output.Results, 3)

	assert.Equal(t, "first", output.Results[0].Content)
	assert.InDelta(t, 0.91, output.Results[0].Similarity, 1e-9)
	assert.Equal(t, "Found 3 relevant matches from 2 different sources.", output.Summary)
}

func TestRetrievalFallsBackToMatchIDAsSource(t *testing.T) {
	index := &fakeIndex{matches: []vectorindex.Match{
		{ID: "a", Score: 0.9, Metadata: map[string]any{"content": "first"}},
		{ID: "b", Score: 0.8, Metadata: map[string]any{"content": "second"}},
	}}
	rt := NewRetrievalTool(&fakeEmbedder{vec: embedding.Vector{0.1}}, index)

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	out, err := rt.Call(reqCtx, map[string]any{"query": "report"})
	require.NoError(t, err)

	assert.Equal(t, "Found 2 relevant matches from 2 different sources.", out.(RetrievalOutput).Summary)
}

func TestRetrievalCustomLimit(t *testing.T) {
	index := &fakeIndex{}
	rt := NewRetrievalTool(&fakeEmbedder{vec: embedding.Vector{0.1}}, index)

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	// JSON numbers decode as float64.
	_, err := rt.Call(reqCtx, map[string]any{"query": "report", "limit": float64(7)})
	require.NoError(t, err)

	assert.Equal(t, 7, index.lastTopK)
}

func TestRetrievalEmptyQuery(t *testing.T) {
	rt := NewRetrievalTool(&fakeEmbedder{vec: embedding.Vector{0.1}}, &fakeIndex{})

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	_, err := rt.Call(reqCtx, map[string]any{"query": ""})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeInvalidParameters, toolErr.Code)
}

func TestRetrievalCancelledBeforeEmbedding(t *testing.T) {
	rt := NewRetrievalTool(&fakeEmbedder{vec: embedding.Vector{0.1}}, &fakeIndex{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reqCtx := core.NewRequestContext(ctx, "chat-1", "tenant-a", nil)

	_, err := rt.Call(reqCtx, map[string]any{"query": "report"})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeAborted, toolErr.Code)
}

func TestRetrievalEmbeddingCancellationAborts(t *testing.T) {
	embErr := &embedding.Error{Kind: embedding.KindCancelled, Err: context.Canceled}
	rt := NewRetrievalTool(&fakeEmbedder{err: embErr}, &fakeIndex{})

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	_, err := rt.Call(reqCtx, map[string]any{"query": "report"})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeAborted, toolErr.Code)
}

func TestRetrievalEmbeddingFailureIsExecutionError(t *testing.T) {
	rt := NewRetrievalTool(&fakeEmbedder{err: errors.New("provider down")}, &fakeIndex{})

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	_, err := rt.Call(reqCtx, map[string]any{"query": "report"})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecutionError, toolErr.Code)
}

func TestRetrievalIndexFailureIsExecutionError(t *testing.T) {
	index := &fakeIndex{err: &vectorindex.Error{Provider: "pinecone", Err: errors.New("status 500")}}
	rt := NewRetrievalTool(&fakeEmbedder{vec: embedding.Vector{0.1}}, index)

	reqCtx := core.NewRequestContext(context.Background(), "chat-1", "tenant-a", nil)

	_, err := rt.Call(reqCtx, map[string]any{"query": "report"})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecutionError, toolErr.Code)
}
