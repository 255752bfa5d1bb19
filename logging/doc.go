// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. Operator-facing detail (model failures, namespace
// override audits) is always routed through this package; the client-visible
// stream never carries it.
package logging
