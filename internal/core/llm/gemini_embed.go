package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/salubra-ai/salubra/internal/core"
)

// GeminiEmbedder is the alternative embedding provider, selected with
// AI_PROVIDER=gemini. Gemini's batch API returns embeddings in request
// order, so indexes are assigned positionally here.
type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	return &GeminiEmbedder{client: cl, modelName: modelName}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Model returns the embedding model identifier.
func (g *GeminiEmbedder) Model() string { return g.modelName }

// EmbedBatch batches all texts in one request via BatchEmbedContents.
func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]core.IndexedEmbedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := g.client.EmbeddingModel(g.modelName)

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embedding count mismatch: got %d want %d", len(resp.Embeddings), len(texts))
	}

	out := make([]core.IndexedEmbedding, 0, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out = append(out, core.IndexedEmbedding{Index: i, Vector: e.Values})
	}
	return out, nil
}
