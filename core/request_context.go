package core

import (
	"context"

	"github.com/hupe1980/ragstream/logging"
)

// RequestContext carries the per-request execution scope: the cancellation
// signal, the generation step counter and the request-scoped override values
// (notably the server-enforced retrieval namespace).
//
// A RequestContext is exclusively owned by one generation session for the
// lifetime of one HTTP request; it is never shared or mutated across
// concurrent requests. Tools receive it read-only; only the session advances
// the step counter.
type RequestContext struct {
	ctx               context.Context
	requestID         string
	chatID            string
	enforcedNamespace string
	steps             int

	logger logging.Logger
}

// NewRequestContext constructs a RequestContext bound to ctx. The enforced
// namespace comes from tenant/config resolution, never from model output.
func NewRequestContext(ctx context.Context, chatID, enforcedNamespace string, logger logging.Logger) *RequestContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	requestID := NewID()
	return &RequestContext{
		ctx:               ctx,
		requestID:         requestID,
		chatID:            chatID,
		enforcedNamespace: enforcedNamespace,
		logger:            logging.With(logger, "request_id", requestID, "chat_id", chatID),
	}
}

// Context returns the ambient cancellation context.
func (rc *RequestContext) Context() context.Context { return rc.ctx }

// Done returns a channel closed when the request is cancelled or timed out.
func (rc *RequestContext) Done() <-chan struct{} { return rc.ctx.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RequestContext) Err() error { return rc.ctx.Err() }

// RequestID returns the correlation id generated for this request.
func (rc *RequestContext) RequestID() string { return rc.requestID }

// ChatID returns the chat transcript identifier the request belongs to.
func (rc *RequestContext) ChatID() string { return rc.chatID }

// EnforcedNamespace returns the server-side retrieval namespace. The value
// always wins over whatever namespace the model supplies in tool parameters.
func (rc *RequestContext) EnforcedNamespace() string { return rc.enforcedNamespace }

// Logger returns the operator-facing logger scoped to this request.
func (rc *RequestContext) Logger() logging.Logger { return rc.logger }

// Steps returns the number of completed generation→tool round trips.
func (rc *RequestContext) Steps() int { return rc.steps }

// AdvanceStep increments the round-trip counter and returns the new value.
// Only the owning generation session may call it.
func (rc *RequestContext) AdvanceStep() int {
	rc.steps++
	return rc.steps
}
