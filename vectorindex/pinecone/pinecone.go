// Package pinecone implements vectorindex.Index over the Pinecone-style HTTP
// query API: a namespaced POST carrying the query vector, topK and a metadata
// inclusion flag.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/ragstream/embedding"
	"github.com/hupe1980/ragstream/vectorindex"
)

// Options configure the Pinecone index client.
type Options struct {
	// HTTPClient is used for all requests. Defaults to a client with a 30s
	// timeout; the per-request context still governs cancellation.
	HTTPClient *http.Client
}

// Index is a vectorindex.Index backed by one Pinecone index host. It holds no
// per-request state and is safe for concurrent use.
type Index struct {
	host   string
	apiKey string
	client *http.Client
}

// New constructs an Index client for the given index host (e.g.
// "my-index-abc123.svc.us-east-1.pinecone.io").
func New(host, apiKey string, optFns ...func(o *Options)) *Index {
	opts := Options{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Index{
		host:   strings.TrimSuffix(host, "/"),
		apiKey: apiKey,
		client: opts.HTTPClient,
	}
}

// queryRequest is the wire shape of a Pinecone query call.
type queryRequest struct {
	Vector          embedding.Vector `json:"vector"`
	TopK            int              `json:"topK"`
	IncludeMetadata bool             `json:"includeMetadata"`
	Namespace       string           `json:"namespace,omitempty"`
}

// queryResponse is the wire shape of a Pinecone query result.
type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Query implements vectorindex.Index with a single HTTP attempt.
func (i *Index) Query(ctx context.Context, vector embedding.Vector, namespace string, topK int) ([]vectorindex.Match, error) {
	body, err := json.Marshal(queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
		Namespace:       namespace,
	})
	if err != nil {
		return nil, &vectorindex.Error{Provider: "pinecone", Err: err}
	}

	url := i.host + "/query"
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &vectorindex.Error{Provider: "pinecone", Err: err}
	}
	req.Header.Set("Api-Key", i.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, &vectorindex.Error{Provider: "pinecone", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &vectorindex.Error{
			Provider: "pinecone",
			Err:      fmt.Errorf("query returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
		}
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &vectorindex.Error{Provider: "pinecone", Err: fmt.Errorf("decode response: %w", err)}
	}

	matches := make([]vectorindex.Match, 0, len(decoded.Matches))
	for _, m := range decoded.Matches {
		matches = append(matches, vectorindex.Match{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}
	return matches, nil
}
