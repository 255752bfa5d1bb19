// Package embedding turns a text query into a numeric vector. The Client owns
// the retry/backoff policy (exponential, cancellable); providers perform one
// raw attempt each. Errors carry a kind so callers can distinguish transient
// unavailability from provider contract violations and cancellation.
package embedding
