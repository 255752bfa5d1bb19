package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Vector is a fixed-length ordered sequence of floats. Its length is a
// contract of the embedding provider and must match the vector index's
// configured dimensionality.
type Vector []float32

// Provider performs one raw embedding attempt. Implementations classify their
// failures via *Error; untyped errors are treated as transient by the Client.
type Provider interface {
	Embed(ctx context.Context, text string) (Vector, error)
}

// OpenAIProviderOptions configure the OpenAI embedding provider.
type OpenAIProviderOptions struct {
	Model string
}

// OpenAIProvider calls the OpenAI embeddings API. SDK-level retries are
// disabled so the Client's backoff loop is the only retry authority.
type OpenAIProvider struct {
	client *openai.Client
	opts   OpenAIProviderOptions
}

// NewOpenAIProvider creates a provider from an existing client. The client is
// stateless aside from credentials and safe for concurrent reuse.
func NewOpenAIProvider(client *openai.Client, optFns ...func(o *OpenAIProviderOptions)) *OpenAIProvider {
	opts := OpenAIProviderOptions{
		Model: openai.EmbeddingModelTextEmbedding3Small,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &OpenAIProvider{client: client, opts: opts}
}

// Embed implements Provider with a single API attempt.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (Vector, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: p.opts.Model,
	}, option.WithMaxRetries(0))
	if err != nil {
		return nil, classifyOpenAIError(ctx, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		// Contract violation, not transient unavailability.
		return nil, newError(KindFatal, fmt.Errorf("provider returned empty embedding for model %s", p.opts.Model))
	}

	raw := resp.Data[0].Embedding
	vec := make(Vector, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, newError(KindFatal, fmt.Errorf("provider returned non-numeric component at index %d", i))
		}
		vec[i] = float32(v)
	}

	return vec, nil
}

// classifyOpenAIError maps SDK errors onto the embedding error taxonomy.
// Network failures and every non-2xx status are transient; cancellation is
// reported distinctly so the retry loop can short-circuit.
func classifyOpenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return newError(KindCancelled, ctx.Err())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(KindCancelled, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return newError(KindTransient, fmt.Errorf("provider returned status %d: %w", apiErr.StatusCode, err))
	}
	return newError(KindTransient, err)
}
