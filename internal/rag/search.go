// Package rag implements knowledge retrieval over the embedded chunk
// store, plus prompt augmentation for the chat layer.
package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/salubra-ai/salubra/internal/core"
	"github.com/salubra-ai/salubra/internal/core/retry"
	"github.com/salubra-ai/salubra/internal/models"
)

// DefaultThreshold is the minimum cosine similarity a chunk needs to be
// returned. Kept low so recall stays high; the chat model judges final
// relevance.
const DefaultThreshold = 0.30

// DefaultLimit caps how many chunks a search returns.
const DefaultLimit = 5

// Searcher embeds a query and finds the nearest ready chunks.
type Searcher struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
	logger   *slog.Logger

	threshold float64
	limit     int
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithThreshold overrides the similarity cutoff.
func WithThreshold(t float64) SearcherOption {
	return func(s *Searcher) {
		if t > 0 {
			s.threshold = t
		}
	}
}

// WithLimit overrides the result cap.
func WithLimit(n int) SearcherOption {
	return func(s *Searcher) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithSearchLogger sets the logger.
func WithSearchLogger(logger *slog.Logger) SearcherOption {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSearcher(db core.DbClient, embedder core.EmbeddingProvider, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		db:        db,
		embedder:  embedder,
		logger:    slog.Default(),
		threshold: DefaultThreshold,
		limit:     DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search embeds the query and returns chunks above the similarity
// threshold, best first. An empty or unpopulated knowledge base yields an
// empty slice, not an error.
func (s *Searcher) Search(ctx context.Context, query, specialty string) ([]models.SearchResult, error) {
	var indexed []core.IndexedEmbedding
	err := retry.Do(ctx, 3, 500*time.Millisecond, core.IsRetryable, func() error {
		var embedErr error
		indexed, embedErr = s.embedder.EmbedBatch(ctx, []string{query})
		return embedErr
	})
	if err != nil {
		return nil, err
	}
	if len(indexed) == 0 {
		return []models.SearchResult{}, nil
	}

	results, err := s.db.MatchChunks(ctx, indexed[0].Vector, s.threshold, s.limit, specialty)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	s.logger.Debug("knowledge search", "query_len", len(query), "matches", len(results))
	return results, nil
}
