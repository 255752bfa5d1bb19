// Package server exposes the chat orchestrator over HTTP. One endpoint,
// POST /api/chat, accepts a transcript and streams the tool-augmented
// response back as server-sent events.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/ragstream"
	"github.com/hupe1980/ragstream/core"
	"github.com/hupe1980/ragstream/logging"
	"github.com/hupe1980/ragstream/store"
	"github.com/hupe1980/ragstream/stream"
)

// DefaultSystemPrompt is used when a request does not supply its own.
const DefaultSystemPrompt = "You are a helpful assistant. Use the available tools to ground your answers in retrieved documents and live data."

// Options configure the chat server.
type Options struct {
	// Timeout is the hard wall clock bound for one request end to end.
	Timeout time.Duration
	// DefaultNamespace is the retrieval namespace applied when the request
	// scope does not carry one.
	DefaultNamespace string
	// Logger receives operator detail. Defaults to a no-op logger.
	Logger logging.Logger
}

// Server handles chat requests. It holds only shared, request-independent
// state (the orchestrator and the transcript store) and is safe for
// concurrent use.
type Server struct {
	orch  *ragstream.Orchestrator
	store store.ChatStore
	opts  Options
}

// New constructs a Server over the given orchestrator.
func New(orch *ragstream.Orchestrator, chatStore store.ChatStore, optFns ...func(o *Options)) *Server {
	opts := Options{
		Timeout: 60 * time.Second,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Server{
		orch:  orch,
		store: chatStore,
		opts:  opts,
	}
}

// Handler returns the HTTP routes of the chat server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// chatRequest is the inbound wire shape of POST /api/chat.
type chatRequest struct {
	ID              string       `json:"id"`
	Messages        []apiMessage `json:"messages"`
	SelectedModel   string       `json:"selectedModel,omitempty"`
	SystemPrompt    string       `json:"systemPrompt,omitempty"`
	VectorNamespace string       `json:"vectorNamespace,omitempty"`
}

// apiMessage is one transcript entry on the wire.
type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	history, lastUser, err := buildHistory(req.Messages)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Resolve the model before committing to the SSE response.
	llm, err := s.orch.Model(req.SelectedModel)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	chatID := req.ID
	if chatID == "" {
		chatID = core.NewID()
	}

	namespace := req.VectorNamespace
	if namespace == "" {
		namespace = s.opts.DefaultNamespace
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.Timeout)
	defer cancel()

	reqCtx := core.NewRequestContext(ctx, chatID, namespace, s.opts.Logger)
	logger := reqCtx.Logger()
	logger.Info("chat.request.accepted",
		"model", llm.Info().Name,
		"messages", len(history),
		"namespace", namespace,
	)

	sse, err := stream.NewSSEWriter(w)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	run, err := s.orch.Stream(reqCtx, req.SelectedModel, s.systemPrompt(req, namespace), history)
	if err != nil {
		logger.Error("chat.stream.start_failed", "error", err.Error())
		return
	}

	for ev := range run.Events {
		if err := sse.Write(ev); err != nil {
			// Client went away; the context cancellation winds the session down.
			logger.Warn("chat.stream.write_failed", "error", err.Error())
			cancel()
		}
	}

	s.persist(reqCtx, lastUser, run)
}

// systemPrompt combines the request's instructions with the retrieval scope
// note so the model knows which corpus its searches address.
func (s *Server) systemPrompt(req chatRequest, namespace string) string {
	prompt := req.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	if namespace != "" {
		prompt += fmt.Sprintf("\n\nDocument searches are scoped to the %q knowledge base.", namespace)
	}
	return prompt
}

// persist appends the user turn and everything the run produced to the
// transcript store. Failures are logged, not surfaced: the response has
// already streamed.
func (s *Server) persist(reqCtx *core.RequestContext, lastUser core.ChatMessage, run *ragstream.Run) {
	if s.store == nil {
		return
	}
	appended := run.AppendedMessages()
	msgs := make([]core.ChatMessage, 0, 1+len(appended))
	msgs = append(msgs, lastUser)
	msgs = append(msgs, appended...)
	if err := s.store.Append(reqCtx.ChatID(), msgs...); err != nil {
		reqCtx.Logger().Error("chat.persist.failed", "error", err.Error())
	}
}

// buildHistory converts wire messages into transcript contents and returns the
// most recent user message. A transcript without a user message is invalid.
func buildHistory(msgs []apiMessage) ([]core.ChatMessage, core.ChatMessage, error) {
	history := make([]core.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case core.RoleUser:
			history = append(history, core.NewUserMessage(m.Content))
		case core.RoleAssistant:
			history = append(history, core.NewAssistantMessage(core.Content{
				Role:  core.RoleAssistant,
				Parts: []core.Part{core.TextPart{Text: m.Content}},
			}))
		case core.RoleSystem:
			// System instructions travel separately; ignore transcript copies.
		default:
			return nil, core.ChatMessage{}, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}

	lastUser, ok := core.MostRecentUserMessage(history)
	if !ok {
		return nil, core.ChatMessage{}, fmt.Errorf("no user message found")
	}
	return history, lastUser, nil
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
