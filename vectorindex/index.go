// Package vectorindex defines the namespaced vector query contract and its
// match shape. Implementations (Pinecone-style HTTP, pgvector) perform a
// single attempt per query; retries are the caller's responsibility.
package vectorindex

import (
	"context"
	"fmt"

	"github.com/hupe1980/ragstream/embedding"
)

// Match is one ranked result of a vector query. Score is in [0,1], higher
// means more similar. Results are ordered descending by score with ties left
// in provider-returned order.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Index queries a namespaced vector index. Returning fewer matches than topK
// is valid; zero matches is a legitimate "no relevant content" outcome, not
// an error.
type Index interface {
	Query(ctx context.Context, vector embedding.Vector, namespace string, topK int) ([]Match, error)
}

// Error wraps a network/provider failure of an index query.
type Error struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("vector index error (%s): %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }
