package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/ragstream/core"
	"github.com/hupe1980/ragstream/embedding"
	"github.com/hupe1980/ragstream/vectorindex"
)

// RetrievalToolName is the name the model uses to invoke vector retrieval.
const RetrievalToolName = "vector_search"

// DefaultRetrievalLimit bounds results when the model omits a limit.
const DefaultRetrievalLimit = 3

// Embedder is the subset of the embedding client the retrieval tool needs.
type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Vector, error)
}

// RetrievalParams documents the declared schema of the retrieval tool. The
// namespace parameter stays in the schema so the model can express intent,
// but it is never trusted: the request-scoped namespace always wins.
type RetrievalParams struct {
	Query     string `json:"query" description:"The search query to find relevant information"`
	Namespace string `json:"namespace" description:"The namespace/collection to search in"`
	Limit     *int   `json:"limit,omitempty" description:"Maximum number of results to return"`
}

// RetrievalResult is one mapped match surfaced to the model.
type RetrievalResult struct {
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RetrievalOutput is the tool result: the mapped matches plus a
// human-readable summary.
type RetrievalOutput struct {
	Results []RetrievalResult `json:"results"`
	Summary string            `json:"summary"`
}

// RetrievalTool composes the embedding client and the vector index into a
// callable tool. It is purely functional with respect to session state; its
// only side effects are the outbound provider calls.
type RetrievalTool struct {
	embedder Embedder
	index    vectorindex.Index
}

// NewRetrievalTool constructs the retrieval tool over the given clients.
func NewRetrievalTool(embedder Embedder, index vectorindex.Index) *RetrievalTool {
	return &RetrievalTool{embedder: embedder, index: index}
}

// Name implements the Tool interface.
func (t *RetrievalTool) Name() string { return RetrievalToolName }

// Description implements the Tool interface.
func (t *RetrievalTool) Description() string {
	return "Search for relevant information in the vector database when you need " +
		"additional context or specific information that you don't have. " +
		"Only use this when necessary."
}

// Parameters implements the Tool interface.
func (t *RetrievalTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query to find relevant information",
			},
			"namespace": map[string]any{
				"type":        "string",
				"description": "The namespace/collection to search in",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results to return",
			},
		},
		"required": []string{"query"},
	}
}

// Call executes the retrieval pipeline: embed the query, search the index
// under the enforced namespace, map matches and summarize. Cancellation is
// checked before every stage and produces the distinct Aborted code.
//
// The effective namespace is always the request-scoped value, regardless of
// what the model supplied. The registry middleware rewrites the argument
// before Call is reached; reading only reqCtx here keeps the invariant even
// if the tool is ever invoked outside a registry.
func (t *RetrievalTool) Call(reqCtx *core.RequestContext, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, &ToolError{Tool: t.Name(), Message: "query must not be empty", Code: CodeInvalidParameters}
	}

	limit := DefaultRetrievalLimit
	if raw, ok := args["limit"].(float64); ok && int(raw) > 0 {
		limit = int(raw)
	}

	namespace := reqCtx.EnforcedNamespace()

	if err := reqCtx.Err(); err != nil {
		return nil, t.aborted(err)
	}

	vector, err := t.embedder.Embed(reqCtx.Context(), query)
	if err != nil {
		if embedding.IsCancelled(err) {
			return nil, t.aborted(err)
		}
		return nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("embedding failed: %v", err), Code: CodeExecutionError}
	}

	if err := reqCtx.Err(); err != nil {
		return nil, t.aborted(err)
	}

	matches, err := t.index.Query(reqCtx.Context(), vector, namespace, limit)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("index query failed: %v", err), Code: CodeExecutionError}
	}

	if err := reqCtx.Err(); err != nil {
		return nil, t.aborted(err)
	}

	results := make([]RetrievalResult, 0, len(matches))
	sources := map[string]struct{}{}
	for _, m := range matches {
		content, _ := m.Metadata["content"].(string)
		results = append(results, RetrievalResult{
			Content:    content,
			Similarity: m.Score,
			Metadata:   m.Metadata,
		})
		if src, ok := m.Metadata["source"].(string); ok && src != "" {
			sources[src] = struct{}{}
		} else {
			sources[m.ID] = struct{}{}
		}
	}

	return RetrievalOutput{
		Results: results,
		Summary: fmt.Sprintf("Found %d relevant matches from %d different sources.", len(results), len(sources)),
	}, nil
}

// aborted wraps a cancellation as the distinct Aborted tool error.
func (t *RetrievalTool) aborted(err error) *ToolError {
	return &ToolError{Tool: t.Name(), Message: err.Error(), Code: CodeAborted}
}

// NamespaceOverride returns the registry middleware enforcing the tenant
// isolation invariant: whatever namespace the model supplied for the
// retrieval tool is replaced with the request-scoped value. A foreign value
// is silently corrected, never surfaced as an error, and logged for audit.
func NamespaceOverride() ParamMiddleware {
	return func(reqCtx *core.RequestContext, toolName string, args map[string]any) {
		if toolName != RetrievalToolName {
			return
		}
		enforced := reqCtx.EnforcedNamespace()
		if supplied, ok := args["namespace"].(string); ok && supplied != "" && supplied != enforced {
			reqCtx.Logger().Warn("tool.namespace.overridden",
				"tool", toolName,
				"supplied_namespace", supplied,
				"enforced_namespace", enforced,
			)
		}
		args["namespace"] = enforced
	}
}
