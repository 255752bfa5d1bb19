package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider fails the first `failures` attempts, then returns vec.
type fakeProvider struct {
	failures int
	vec      Vector
	err      error
	calls    int
}

func (p *fakeProvider) Embed(_ context.Context, _ string) (Vector, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.calls <= p.failures {
		return nil, fmt.Errorf("attempt %d failed", p.calls)
	}
	return p.vec, nil
}

func recordingSleep(delays *[]time.Duration) func(o *ClientOptions) {
	return WithSleepFunc(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var delays []time.Duration
	provider := &fakeProvider{failures: 2, vec: Vector{0.1, 0.2, 0.3}}

	client := NewClient(provider, recordingSleep(&delays))

	vec, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, Vector{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, provider.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestClientExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	provider := &fakeProvider{failures: 10}

	client := NewClient(provider, recordingSleep(&delays))

	_, err := client.Embed(context.Background(), "hello")
	require.Error(t, err)

	assert.Equal(t, KindFatal, KindOf(err))
	assert.Equal(t, 3, provider.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	assert.Contains(t, err.Error(), "exhausted 3 attempts")
}

func TestClientFatalNotRetried(t *testing.T) {
	provider := &fakeProvider{err: newError(KindFatal, errors.New("bad request"))}

	client := NewClient(provider)

	_, err := client.Embed(context.Background(), "hello")
	require.Error(t, err)

	assert.Equal(t, KindFatal, KindOf(err))
	assert.Equal(t, 1, provider.calls)
}

func TestClientCancelledBeforeAttempt(t *testing.T) {
	provider := &fakeProvider{vec: Vector{0.1}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(provider)

	_, err := client.Embed(ctx, "hello")
	require.Error(t, err)

	assert.True(t, IsCancelled(err))
	assert.Equal(t, 0, provider.calls)
}

func TestClientCancelledDuringBackoff(t *testing.T) {
	provider := &fakeProvider{failures: 10}

	client := NewClient(provider, WithSleepFunc(func(_ context.Context, _ time.Duration) error {
		return context.Canceled
	}))

	_, err := client.Embed(context.Background(), "hello")
	require.Error(t, err)

	assert.True(t, IsCancelled(err))
	assert.Equal(t, 1, provider.calls)
}

func TestClientCustomBackoffPolicy(t *testing.T) {
	var delays []time.Duration
	provider := &fakeProvider{failures: 4, vec: Vector{0.1}}

	client := NewClient(provider, recordingSleep(&delays), func(o *ClientOptions) {
		o.MaxAttempts = 5
		o.BaseDelay = 100 * time.Millisecond
	})

	_, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, 5, provider.calls)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}, delays)
}

func TestClientRejectsEmptyVector(t *testing.T) {
	provider := &fakeProvider{vec: Vector{}}

	client := NewClient(provider)

	_, err := client.Embed(context.Background(), "hello")
	require.Error(t, err)

	assert.Equal(t, KindFatal, KindOf(err))
	assert.Equal(t, 1, provider.calls)
}

func TestClientRejectsDimensionMismatch(t *testing.T) {
	provider := &fakeProvider{vec: Vector{0.1, 0.2, 0.3}}

	client := NewClient(provider, func(o *ClientOptions) {
		o.ExpectedDimension = 1536
	})

	_, err := client.Embed(context.Background(), "hello")
	require.Error(t, err)

	assert.Equal(t, KindFatal, KindOf(err))
	assert.Contains(t, err.Error(), "dimension")
	assert.Equal(t, 1, provider.calls)
}
