// Package ragstream provides a high-level façade over the generation session,
// tool registry and stream merger, enabling tool-augmented streaming chat with
// a few lines of setup. Most applications interact with this package by:
//  1. Creating an Orchestrator via New() with one or more named models
//  2. Registering tools (retrieval, weather, custom) on a shared registry
//  3. Streaming requests (Stream) or collecting them synchronously (ChatSync)
//
// The façade delegates the generation loop to session.GenerationSession and
// outbound shaping to stream.Merger while keeping setup ergonomics concise.
// Defaults are safe for local development; servers typically supply a
// structured logger and tune the step bound from configuration.
package ragstream

import (
	"fmt"
	"strings"

	"github.com/hupe1980/ragstream/core"
	"github.com/hupe1980/ragstream/logging"
	"github.com/hupe1980/ragstream/model"
	"github.com/hupe1980/ragstream/session"
	"github.com/hupe1980/ragstream/stream"
	"github.com/hupe1980/ragstream/tool"
)

// Options configure the Orchestrator.
type Options struct {
	// MaxSteps bounds generation↔tool round trips per request.
	MaxSteps int
	// Chunking selects the outbound text smoothing policy.
	Chunking stream.Chunking
	// DefaultModel names the model used when a request does not select one.
	DefaultModel string
	// Logger receives operator detail. Defaults to a no-op logger.
	Logger logging.Logger
}

// Orchestrator aggregates the shared, request-independent pieces of the chat
// pipeline: the named model set, the tool registry and the stream policy. It
// is safe for concurrent use; per-request state lives in the RequestContext
// and the session created per call.
type Orchestrator struct {
	models   map[string]model.Model
	registry *tool.Registry
	opts     Options
}

// New creates an Orchestrator over the given named models and registry.
func New(models map[string]model.Model, registry *tool.Registry, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		MaxSteps:     5,
		Chunking:     stream.ChunkingWord,
		DefaultModel: "openai",
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Orchestrator{models: models, registry: registry, opts: opts}
}

// Run is one in-flight request: the merged outbound event stream plus access
// to the session's transcript once the stream has closed.
type Run struct {
	// Events carries the ordered outbound stream. It closes after the
	// terminal finished or error event.
	Events <-chan core.StreamEvent

	sess *session.GenerationSession
}

// AppendedMessages returns the messages the run produced (assistant turns and
// tool responses). Valid once Events has closed.
func (r *Run) AppendedMessages() []core.ChatMessage { return r.sess.AppendedMessages() }

// State returns the session lifecycle state.
func (r *Run) State() session.State { return r.sess.State() }

// Stream starts one tool-augmented generation request against the named
// model. An empty modelName selects the configured default.
func (o *Orchestrator) Stream(reqCtx *core.RequestContext, modelName, systemPrompt string, history []core.ChatMessage) (*Run, error) {
	llm, err := o.Model(modelName)
	if err != nil {
		return nil, err
	}

	sess := session.New(llm, o.registry, func(s *session.Options) {
		s.MaxSteps = o.opts.MaxSteps
	})

	merger := stream.NewMerger(func(m *stream.Options) {
		m.Chunking = o.opts.Chunking
		m.Logger = reqCtx.Logger()
	})

	return &Run{
		Events: merger.Pipe(sess.Run(reqCtx, systemPrompt, history)),
		sess:   sess,
	}, nil
}

// ChatSync is a synchronous helper that drains the stream and returns the
// accumulated answer text alongside every emitted event.
func (o *Orchestrator) ChatSync(reqCtx *core.RequestContext, modelName, systemPrompt string, history []core.ChatMessage) (string, []core.StreamEvent, error) {
	run, err := o.Stream(reqCtx, modelName, systemPrompt, history)
	if err != nil {
		return "", nil, err
	}

	var text strings.Builder
	var events []core.StreamEvent
	for ev := range run.Events {
		events = append(events, ev)
		switch ev.Type {
		case core.EventTextDelta:
			text.WriteString(ev.TextDelta)
		case core.EventError:
			return text.String(), events, fmt.Errorf("generation failed: %s", ev.ErrorMessage)
		}
	}

	return text.String(), events, nil
}

// Model resolves a model name against the configured set. An empty name
// selects the default.
func (o *Orchestrator) Model(name string) (model.Model, error) {
	if name == "" {
		name = o.opts.DefaultModel
	}
	llm, ok := o.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q", name)
	}
	return llm, nil
}

// Registry returns the shared tool registry.
func (o *Orchestrator) Registry() *tool.Registry { return o.registry }
