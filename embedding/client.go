package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/ragstream/logging"
)

// ClientOptions configure the retrying embedding client.
type ClientOptions struct {
	// MaxAttempts bounds the total number of provider calls.
	MaxAttempts int
	// BaseDelay is the first backoff delay; attempt n sleeps BaseDelay * 2^n.
	BaseDelay time.Duration
	// ExpectedDimension, when non-zero, is validated against every returned
	// vector. A mismatch is a fatal configuration error, never retried.
	ExpectedDimension int
	// Logger receives per-attempt operator detail.
	Logger logging.Logger

	// sleep is swapped in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// WithSleepFunc overrides the backoff sleep. Intended for tests.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) func(o *ClientOptions) {
	return func(o *ClientOptions) { o.sleep = fn }
}

// Client wraps a Provider with exponential backoff, cancellation-aware
// retries and output validation. A Client holds no per-request state and is
// safe for concurrent use.
type Client struct {
	provider Provider
	opts     ClientOptions
}

// NewClient constructs a Client with the default policy: 3 attempts, 1s base
// delay.
func NewClient(provider Provider, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Logger:      logging.NoOpLogger{},
		sleep:       sleepCtx,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.sleep == nil {
		opts.sleep = sleepCtx
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Client{provider: provider, opts: opts}
}

// Embed returns the embedding vector for text, retrying transient provider
// failures with exponential backoff. Cancellation is checked before each
// attempt and before each sleep; a cancelled request fails immediately with a
// cancelled error, short-circuiting remaining retries.
func (c *Client) Embed(ctx context.Context, text string) (Vector, error) {
	var lastErr error

	for attempt := 0; attempt < c.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, newError(KindCancelled, err)
		}

		vec, err := c.provider.Embed(ctx, text)
		if err == nil {
			if verr := c.validate(vec); verr != nil {
				return nil, verr
			}
			return vec, nil
		}

		switch KindOf(err) {
		case KindCancelled:
			return nil, err
		case KindFatal:
			return nil, err
		}

		lastErr = err
		c.opts.Logger.Warn("embedding.attempt.failed",
			"attempt", attempt+1,
			"max_attempts", c.opts.MaxAttempts,
			"error", err.Error(),
		)

		if attempt == c.opts.MaxAttempts-1 {
			break
		}

		delay := c.opts.BaseDelay * time.Duration(1<<attempt)
		if err := ctx.Err(); err != nil {
			return nil, newError(KindCancelled, err)
		}
		if err := c.opts.sleep(ctx, delay); err != nil {
			return nil, newError(KindCancelled, err)
		}
	}

	return nil, newError(KindFatal, fmt.Errorf("exhausted %d attempts: %w", c.opts.MaxAttempts, lastErr))
}

// validate enforces the provider contract on a returned vector.
func (c *Client) validate(vec Vector) error {
	if len(vec) == 0 {
		return newError(KindFatal, fmt.Errorf("provider returned empty vector"))
	}
	if c.opts.ExpectedDimension > 0 && len(vec) != c.opts.ExpectedDimension {
		return newError(KindFatal, fmt.Errorf(
			"vector dimension %d does not match configured index dimension %d",
			len(vec), c.opts.ExpectedDimension,
		))
	}
	return nil
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
