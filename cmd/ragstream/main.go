// Command ragstream runs the chat orchestration daemon: streaming LLM
// generation with mid-stream tool calls for document retrieval and weather
// lookups.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jackc/pgx/v5/pgxpool"
	openaisdk "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/hupe1980/ragstream"
	"github.com/hupe1980/ragstream/config"
	"github.com/hupe1980/ragstream/embedding"
	"github.com/hupe1980/ragstream/logging"
	"github.com/hupe1980/ragstream/model"
	anthropicmodel "github.com/hupe1980/ragstream/model/anthropic"
	openaimodel "github.com/hupe1980/ragstream/model/openai"
	"github.com/hupe1980/ragstream/server"
	"github.com/hupe1980/ragstream/store"
	"github.com/hupe1980/ragstream/stream"
	"github.com/hupe1980/ragstream/tool"
	"github.com/hupe1980/ragstream/vectorindex"
	"github.com/hupe1980/ragstream/vectorindex/pgvector"
	"github.com/hupe1980/ragstream/vectorindex/pinecone"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "ragstream",
		Short:         "Tool-augmented streaming chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (optional)")

	return cmd
}

func run(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewJSONLogger()

	openaiClient := openaisdk.NewClient(openaiopt.WithAPIKey(cfg.OpenAIAPIKey))

	models := map[string]model.Model{
		"openai": openaimodel.NewModelFromClient(&openaiClient),
	}
	if cfg.AnthropicAPIKey != "" {
		anthropicClient := anthropicsdk.NewClient(anthropicopt.WithAPIKey(cfg.AnthropicAPIKey))
		models["anthropic"] = anthropicmodel.NewModelFromClient(&anthropicClient)
	}

	embedder := embedding.NewClient(
		embedding.NewOpenAIProvider(&openaiClient, func(o *embedding.OpenAIProviderOptions) {
			o.Model = cfg.Embedding.Model
		}),
		func(o *embedding.ClientOptions) {
			o.MaxAttempts = cfg.Embedding.MaxAttempts
			o.BaseDelay = cfg.Embedding.BaseDelay
			o.ExpectedDimension = cfg.Embedding.Dimension
			o.Logger = logger
		},
	)

	index, cleanup, err := newIndex(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init vector index: %w", err)
	}
	defer cleanup()

	registry := tool.NewRegistry()
	registry.Use(tool.NamespaceOverride())
	registry.Register(tool.NewRetrievalTool(embedder, index))
	registry.Register(tool.NewWeatherTool())

	orch := ragstream.New(models, registry, func(o *ragstream.Options) {
		o.MaxSteps = cfg.MaxSteps
		o.Chunking = stream.Chunking(cfg.Chunking)
		o.Logger = logger
	})

	srv := server.New(orch, store.NewInMemoryStore(), func(o *server.Options) {
		o.Timeout = cfg.RequestTimeout
		o.Logger = logger
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", cfg.Addr, "index", cfg.Index.Provider)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("server.shutdown.begin")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server.shutdown.complete")
	}

	return nil
}

// newIndex builds the configured vector index backend. The returned cleanup
// releases backend resources (connection pools) and is always safe to call.
func newIndex(ctx context.Context, cfg *config.Config) (vectorindex.Index, func(), error) {
	switch cfg.Index.Provider {
	case config.IndexProviderPinecone:
		return pinecone.New(cfg.Index.Host, cfg.Index.APIKey), func() {}, nil
	case config.IndexProviderPgvector:
		pool, err := pgxpool.New(ctx, cfg.Index.PostgresURL)
		if err != nil {
			return nil, func() {}, fmt.Errorf("connect postgres: %w", err)
		}
		idx := pgvector.New(pool, func(o *pgvector.Options) {
			o.Table = cfg.Index.Table
		})
		return idx, pool.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported index provider %q", cfg.Index.Provider)
	}
}
