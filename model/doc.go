// Package model defines the provider-agnostic abstractions for driving
// language model generation inside ragstream.
//
// Core goals:
//   - Unify streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic scripting for tests (ScriptedModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so the generation session stays decoupled from vendor SDKs.
package model
