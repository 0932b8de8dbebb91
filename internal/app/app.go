// Package app wires configuration, clients, the ingestion lane, and the
// HTTP server into one runnable unit.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/salubra-ai/salubra/internal/chat"
	"github.com/salubra-ai/salubra/internal/config"
	"github.com/salubra-ai/salubra/internal/core"
	db "github.com/salubra-ai/salubra/internal/core/database"
	"github.com/salubra-ai/salubra/internal/core/extract"
	"github.com/salubra-ai/salubra/internal/core/llm"
	objectclient "github.com/salubra-ai/salubra/internal/core/object-client"
	"github.com/salubra-ai/salubra/internal/ingest"
	"github.com/salubra-ai/salubra/internal/rag"
)

type App struct {
	DBClient core.DbClient
	Queue    *ingest.Queue
	Server   *Server

	logger   *slog.Logger
	embedder core.EmbeddingProvider
}

func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	startCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(startCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}
	logger.Info("database initialized and bootstrapped")

	objClient, err := objectclient.NewS3Client(startCtx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("object storage init: %w", err)
	}

	openai := llm.NewOpenAIClient(cfg.AIBaseURL, cfg.AIAPIKey)

	var embedder core.EmbeddingProvider
	switch cfg.AIProvider {
	case "gemini":
		embedder, err = llm.NewGeminiEmbedder(startCtx, cfg.GeminiAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, fmt.Errorf("embedder init: %w", err)
		}
	default:
		embedder = llm.NewOpenAIEmbedder(openai, cfg.EmbedModel)
	}

	transcriber := llm.NewWhisperTranscriber(openai, cfg.WhisperModel)
	completer := llm.NewOpenAICompleter(openai)

	extractor := extract.NewRegistry(transcriber, extract.WithLogger(logger))
	chunker := ingest.NewChunker(
		ingest.WithTargetTokens(cfg.TargetTokens),
		ingest.WithOverlapTokens(cfg.OverlapTokens),
	)

	queue := ingest.NewQueue(cfg.QueueSize, logger)
	ingestor := ingest.NewIngestor(dbClient, objClient, embedder, extractor, chunker, queue, logger)

	searcher := rag.NewSearcher(dbClient, embedder,
		rag.WithThreshold(cfg.MatchThreshold),
		rag.WithLimit(cfg.MatchCount),
		rag.WithSearchLogger(logger),
	)
	orchestrator := chat.NewOrchestrator(
		completer, searcher,
		cfg.ChatModel, cfg.VisionModel,
		cfg.MaxOutputTokens, cfg.Temperature,
		logger,
	)

	server := NewServer(cfg, dbClient, objClient, ingestor, searcher, orchestrator, logger)

	return &App{
		DBClient: dbClient,
		Queue:    queue,
		Server:   server,
		logger:   logger,
		embedder: embedder,
	}, nil
}

func (a *App) Close() {
	if closer, ok := a.embedder.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
