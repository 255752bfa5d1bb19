// Package core provides the foundational domain types used by ragstream. It
// defines the core abstractions for:
//
//   - Chat messages and their polymorphic content parts
//   - Stream events (the ordered client-visible output protocol)
//   - Tool call requests / results and their correlation invariants
//   - RequestContext (per-request scope: cancellation, step counter and the
//     server-enforced retrieval namespace)
//
// The package intentionally keeps implementation concerns (model adapters,
// tool execution, transport) out of scope, exposing small types so the
// orchestration layers stay decoupled.
package core
