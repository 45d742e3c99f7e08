package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hmaeda/specialist/internal/chat"
	"github.com/hmaeda/specialist/internal/config"
	"github.com/hmaeda/specialist/internal/embedder"
	"github.com/hmaeda/specialist/internal/ingestion"
	"github.com/hmaeda/specialist/internal/reranker"
	"github.com/hmaeda/specialist/internal/repository"
	"github.com/hmaeda/specialist/internal/repository/postgres"
	"github.com/hmaeda/specialist/internal/rewriter"
	"github.com/hmaeda/specialist/internal/server"
	"github.com/hmaeda/specialist/internal/service"
	"github.com/hmaeda/specialist/internal/vectorstore"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting specialist service",
		"http_port", cfg.HTTPPort,
		"retrieval_mode", cfg.RetrievalMode,
		"environment", cfg.Environment,
	)

	// Initialize PostgreSQL
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("connected to PostgreSQL")

	documentRepo := postgres.NewDocumentRepo(db)

	// Initialize Qdrant vector store
	store, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()
	slog.Info("connected to Qdrant")

	// Initialize embedder
	embed, err := embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDim,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	slog.Info("initialized embedder", "model", cfg.EmbeddingModel)

	// Initialize chat client
	chatClient, err := chat.NewOpenAIClient(cfg.OpenAIAPIKey,
		chat.WithBaseURL(cfg.OpenAIBaseURL),
		chat.WithModel(cfg.ChatModel),
	)
	if err != nil {
		return fmt.Errorf("failed to create chat client: %w", err)
	}
	slog.Info("initialized chat client", "model", cfg.ChatModel)

	// Query rewriter uses a cheaper model than answer generation
	rw := rewriter.NewQueryRewriter(chatClient,
		rewriter.WithModel(cfg.RewriteModel),
		rewriter.WithMaxChars(cfg.RewriteMaxChars),
	)

	// Reranker variant per config; only exercised in rerank mode
	var rr reranker.Reranker
	switch cfg.Reranker {
	case config.RerankerCrossEncoder:
		scorer := reranker.NewHTTPPairScorer(cfg.CrossEncoderURL)
		rr = reranker.NewCrossEncoderReranker(scorer, slog.Default())
		slog.Info("initialized cross-encoder reranker", "url", cfg.CrossEncoderURL)
	default:
		rr = reranker.NewLLMReranker(chatClient, reranker.WithModel(cfg.ChatModel))
		slog.Info("initialized LLM reranker", "model", cfg.ChatModel)
	}

	chatSvc := service.NewChatService(rw, embed, store, chatClient,
		service.WithMode(cfg.RetrievalMode),
		service.WithReranker(rr),
		service.WithHybridAlpha(cfg.HybridAlpha),
		service.WithChatModel(cfg.ChatModel),
	)

	ingester := ingestion.NewIngester(store, embed, documentRepo, slog.Default())

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
		Chat:           chatSvc,
		Ingester:       ingester,
		Documents:      documentRepo,
		StoryOptions: ingestion.StoryOptions{
			ChunkSize:      cfg.StoryChunkSize,
			OverlapPercent: cfg.StoryOverlapPercent,
		},
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ repository.DocumentRepository = (*postgres.DocumentRepo)(nil)
	_ vectorstore.Store             = (*vectorstore.QdrantStore)(nil)
	_ embedder.Embedder             = (*embedder.OpenAIEmbedder)(nil)
	_ chat.Client                   = (*chat.OpenAIClient)(nil)
)
