package models

import (
	"time"
)

// Document lifecycle states. A document only ever moves forward:
// processing -> ready or processing -> error.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusError      = "error"
)

// Document represents an uploaded source document in the knowledge base.
type Document struct {
	ID          string            `db:"id" json:"id"`
	OwnerID     string            `db:"owner_id" json:"owner_id,omitempty"`
	Specialty   string            `db:"specialty" json:"specialty"`
	Title       string            `db:"title" json:"title"`
	FileName    string            `db:"file_name" json:"file_name"`
	FileType    string            `db:"file_type" json:"file_type"`
	FileSize    int64             `db:"file_size" json:"file_size"`
	StoragePath string            `db:"storage_path" json:"storage_path"`
	Status      string            `db:"status" json:"status"`
	TotalChunks int               `db:"total_chunks" json:"total_chunks"`
	Metadata    map[string]string `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time        `db:"processed_at" json:"processed_at,omitempty"`
}

// Chunk is one bounded slice of a document's extracted text.
// ChunkIndex values for a document form a contiguous range [0, total_chunks).
type Chunk struct {
	ID         string            `db:"id" json:"id"`
	DocumentID string            `db:"document_id" json:"document_id"`
	ChunkIndex int               `db:"chunk_index" json:"chunk_index"`
	Content    string            `db:"content" json:"content"`
	TokenCount int               `db:"token_count" json:"token_count"`
	Metadata   map[string]string `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}

// Embedding stores the vector for exactly one chunk, tagged with the
// model that produced it. Similarity search is only meaningful across
// embeddings from the same model.
type Embedding struct {
	ID      string    `db:"id" json:"id"`
	ChunkID string    `db:"chunk_id" json:"chunk_id"`
	Vector  []float32 `db:"embedding" json:"-"`
	Model   string    `db:"model" json:"model"`
}

// SearchResult is one row of a similarity lookup, ordered by Similarity
// descending.
type SearchResult struct {
	ChunkID       string            `json:"chunk_id"`
	DocumentID    string            `json:"document_id"`
	Content       string            `json:"content"`
	Similarity    float64           `json:"similarity"`
	DocumentTitle string            `json:"document_title"`
	ChunkIndex    int               `json:"chunk_index"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}
