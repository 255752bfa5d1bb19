// Package pgvector implements vectorindex.Index against a PostgreSQL
// documents table with a pgvector embedding column. Cosine distance drives
// the ranking; scores are reported as 1 - distance so higher means more
// similar, matching the index contract.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/hupe1980/ragstream/embedding"
	"github.com/hupe1980/ragstream/vectorindex"
)

// Querier is the subset of pgxpool.Pool the index needs. Defined here, on the
// consumer side, so tests can substitute a fake.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Index is a vectorindex.Index backed by a pgvector table of the shape:
//
//	CREATE TABLE documents (
//	    id        TEXT PRIMARY KEY,
//	    namespace TEXT NOT NULL,
//	    content   TEXT NOT NULL,
//	    metadata  JSONB,
//	    embedding VECTOR(<dim>) NOT NULL
//	);
type Index struct {
	db    Querier
	table string
}

// Options configure the pgvector index.
type Options struct {
	// Table overrides the default "documents" table name.
	Table string
}

// New constructs an Index over db.
func New(db Querier, optFns ...func(o *Options)) *Index {
	opts := Options{Table: "documents"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Index{db: db, table: opts.Table}
}

// Query implements vectorindex.Index with a single namespaced SQL query.
func (i *Index) Query(ctx context.Context, vector embedding.Vector, namespace string, topK int) ([]vectorindex.Match, error) {
	sql := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE namespace = $2
		ORDER BY embedding <=> $1
		LIMIT $3`, i.table)

	rows, err := i.db.Query(ctx, sql, pgv.NewVector(vector), namespace, topK)
	if err != nil {
		return nil, &vectorindex.Error{Provider: "pgvector", Err: err}
	}
	defer rows.Close()

	matches := []vectorindex.Match{}
	for rows.Next() {
		var (
			id       string
			content  string
			rawMeta  []byte
			score    float64
			metadata map[string]any
		)
		if err := rows.Scan(&id, &content, &rawMeta, &score); err != nil {
			return nil, &vectorindex.Error{Provider: "pgvector", Err: fmt.Errorf("scan row: %w", err)}
		}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &metadata); err != nil {
				return nil, &vectorindex.Error{Provider: "pgvector", Err: fmt.Errorf("decode metadata: %w", err)}
			}
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		// Content rides in metadata so both index backends expose one shape.
		metadata["content"] = content

		matches = append(matches, vectorindex.Match{ID: id, Score: score, Metadata: metadata})
	}
	if err := rows.Err(); err != nil {
		return nil, &vectorindex.Error{Provider: "pgvector", Err: err}
	}

	return matches, nil
}
