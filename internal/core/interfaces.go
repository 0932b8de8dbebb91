package core

import (
	"context"

	"github.com/salubra-ai/salubra/internal/models"
)

// DbClient defines all persistence operations the pipeline and retrieval
// layers need. It abstracts Postgres/pgvector so higher layers never
// depend on a specific DB.
type DbClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, specialty string) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	FinalizeDocument(ctx context.Context, id, status string, totalChunks int, metadata map[string]string) error

	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	ChunkIDsByIndex(ctx context.Context, documentID string) (map[int]string, error)
	InsertEmbeddings(ctx context.Context, embeddings []models.Embedding) error

	MatchChunks(ctx context.Context, queryVec []float32, threshold float64, limit int, specialty string) ([]models.SearchResult, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// The bucket is bound at construction.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data []byte, contentType string) (string, error)
	GetFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
}

// IndexedEmbedding is one vector of a batch call, tagged with the index
// of the input text that produced it. The provider may return results in
// any order; callers must re-associate by Index, never by slice position.
type IndexedEmbedding struct {
	Index  int
	Vector []float32
}

// EmbeddingProvider converts text into dense vectors.
type EmbeddingProvider interface {
	EmbedBatch(ctx context.Context, texts []string) ([]IndexedEmbedding, error)
	Model() string
}

// TranscriptionProvider converts audio bytes into text.
type TranscriptionProvider interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// ContentPart is one piece of a multimodal provider message.
type ContentPart struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries image data (a data URL or remote URL) plus a detail hint.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ProviderMessage is a chat message in provider wire format. Content and
// Parts are mutually exclusive: plain-text messages use Content,
// multimodal messages use Parts.
type ProviderMessage struct {
	Role    string
	Content string
	Parts   []ContentPart
}

// CompletionRequest describes one bounded completion call.
type CompletionRequest struct {
	Model       string
	Messages    []ProviderMessage
	MaxTokens   int
	Temperature float64
}

// CompletionResult is the raw completion text plus the model that
// actually served the request.
type CompletionResult struct {
	Text  string
	Model string
}

// CompletionProvider calls an external chat completion API.
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}
