package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salubra-ai/salubra/internal/core"
	"github.com/salubra-ai/salubra/internal/models"
)

type stubEmbedder struct {
	err   error
	calls int
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]core.IndexedEmbedding, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]core.IndexedEmbedding, len(texts))
	for i := range texts {
		out[i] = core.IndexedEmbedding{Index: i, Vector: []float32{0.1, 0.2, 0.3}}
	}
	return out, nil
}

func (s *stubEmbedder) Model() string { return "stub-embed" }

type stubMatcher struct {
	core.DbClient

	gotThreshold float64
	gotLimit     int
	gotSpecialty string
	results      []models.SearchResult
	err          error
}

func (m *stubMatcher) MatchChunks(ctx context.Context, queryVec []float32, threshold float64, limit int, specialty string) ([]models.SearchResult, error) {
	m.gotThreshold = threshold
	m.gotLimit = limit
	m.gotSpecialty = specialty
	return m.results, m.err
}

func TestSearchPassesThresholdLimitAndSpecialty(t *testing.T) {
	db := &stubMatcher{results: []models.SearchResult{
		{ChunkID: "c1", Similarity: 0.9, Content: "uno"},
		{ChunkID: "c2", Similarity: 0.5, Content: "dos"},
	}}
	s := NewSearcher(db, &stubEmbedder{}, WithThreshold(0.42), WithLimit(3))

	results, err := s.Search(context.Background(), "que es la fibra", "nutricion")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 0.42, db.gotThreshold)
	assert.Equal(t, 3, db.gotLimit)
	assert.Equal(t, "nutricion", db.gotSpecialty)
}

func TestSearchEmptyKnowledgeBaseReturnsEmptyNotError(t *testing.T) {
	s := NewSearcher(&stubMatcher{results: nil}, &stubEmbedder{})

	results, err := s.Search(context.Background(), "pregunta", "")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchTerminalEmbeddingFailureIsNotRetried(t *testing.T) {
	embedder := &stubEmbedder{err: &core.EmbeddingError{Status: 400, Body: "bad request"}}
	s := NewSearcher(&stubMatcher{}, embedder)

	_, err := s.Search(context.Background(), "pregunta", "")
	require.Error(t, err)
	assert.Equal(t, 1, embedder.calls)
}

func TestAugmentPromptEmptyResultsReturnsBaseUnchanged(t *testing.T) {
	base := "Eres un asistente de salud.\nResponde con precision."
	assert.Equal(t, base, AugmentPrompt(base, nil))
	assert.Equal(t, base, AugmentPrompt(base, []models.SearchResult{}))
}

func TestAugmentPromptIncludesChunksAndMarkers(t *testing.T) {
	base := "Eres un asistente de salud."
	results := []models.SearchResult{
		{DocumentTitle: "Guia de nutricion", Similarity: 0.81, Content: "La fibra mejora el transito intestinal."},
		{DocumentTitle: "Manual clinico", Similarity: 0.44, Content: "Texto secundario."},
	}

	out := AugmentPrompt(base, results)
	assert.True(t, strings.HasPrefix(out, base))
	assert.Contains(t, out, "La fibra mejora el transito intestinal.")
	assert.Contains(t, out, "Guia de nutricion")
	assert.Contains(t, out, "alta")
	assert.Contains(t, out, "baja")
	assert.Contains(t, out, MarkerDatabase)
	assert.Contains(t, out, MarkerGeneral)
}
