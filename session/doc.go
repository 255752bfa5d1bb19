// Package session implements the generation session: the state machine that
// drives a streaming model turn, detects tool-call requests emitted
// mid-stream, fans them out to the tool registry, feeds results back to the
// model and repeats up to a configured step bound.
//
// One GenerationSession exclusively owns one core.RequestContext for the
// lifetime of one request. Tool calls within a step run concurrently with
// each other but are jointly awaited before generation resumes.
package session
