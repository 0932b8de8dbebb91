package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/salubra-ai/salubra/internal/api/handlers"
	"github.com/salubra-ai/salubra/internal/chat"
	"github.com/salubra-ai/salubra/internal/config"
	"github.com/salubra-ai/salubra/internal/core"
	"github.com/salubra-ai/salubra/internal/ingest"
	"github.com/salubra-ai/salubra/internal/rag"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds and wires all routes.
func NewServer(
	cfg *config.Config,
	dbClient core.DbClient,
	objClient core.ObjectClient,
	ingestor *ingest.Ingestor,
	searcher *rag.Searcher,
	orchestrator *chat.Orchestrator,
	logger *slog.Logger,
) *Server {
	docHandler := handlers.NewDocumentHandler(dbClient, objClient, ingestor, logger)
	chatHandler := handlers.NewChatHandler(orchestrator)
	knowledgeHandler := handlers.NewKnowledgeHandler(searcher)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/documents", docHandler.UploadDocument)
		r.Get("/documents", docHandler.GetDocuments)
		r.Get("/documents/{id}", docHandler.GetDocument)
		r.Delete("/documents/{id}", docHandler.DeleteDocument)

		r.Post("/knowledge/search", knowledgeHandler.Search)
		r.Post("/chat", chatHandler.Chat)
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv, logger: logger}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
