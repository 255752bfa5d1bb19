package pinecone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ragstream/embedding"
	"github.com/hupe1980/ragstream/vectorindex"
)

func TestQuery(t *testing.T) {
	var gotBody map[string]any
	var gotAPIKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/query", r.URL.Path)

		gotAPIKey = r.Header.Get("Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"matches": [
				{"id": "doc-1", "score": 0.93, "metadata": {"content": "first chunk", "source": "handbook"}},
				{"id": "doc-2", "score": 0.87, "metadata": {"content": "second chunk"}}
			]
		}`))
	}))
	defer srv.Close()

	idx := New(srv.URL, "secret-key")

	matches, err := idx.Query(context.Background(), embedding.Vector{0.1, 0.2}, "tenant-a", 3)
	require.NoError(t, err)

	assert.Equal(t, "secret-key", gotAPIKey)
	assert.Equal(t, "tenant-a", gotBody["namespace"])
	assert.Equal(t, float64(3), gotBody["topK"])
	assert.Equal(t, true, gotBody["includeMetadata"])

	require.Len(t, matches, 2)
	assert.Equal(t, "doc-1", matches[0].ID)
	assert.InDelta(t, 0.93, matches[0].Score, 1e-9)
	assert.Equal(t, "first chunk", matches[0].Metadata["content"])
	assert.Equal(t, "handbook", matches[0].Metadata["source"])
}

func TestQueryEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches": []}`))
	}))
	defer srv.Close()

	idx := New(srv.URL, "secret-key")

	matches, err := idx.Query(context.Background(), embedding.Vector{0.1}, "tenant-a", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQueryNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "namespace not found", http.StatusNotFound)
	}))
	defer srv.Close()

	idx := New(srv.URL, "secret-key")

	_, err := idx.Query(context.Background(), embedding.Vector{0.1}, "tenant-a", 3)
	require.Error(t, err)

	var idxErr *vectorindex.Error
	require.True(t, errors.As(err, &idxErr))
	assert.Equal(t, "pinecone", idxErr.Provider)
	assert.Contains(t, err.Error(), "404")
}

func TestQueryCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"matches": []}`))
	}))
	defer srv.Close()

	idx := New(srv.URL, "secret-key")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Query(ctx, embedding.Vector{0.1}, "tenant-a", 3)
	require.Error(t, err)
}
