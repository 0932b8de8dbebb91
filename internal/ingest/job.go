package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/salubra-ai/salubra/internal/core"
	"github.com/salubra-ai/salubra/internal/core/extract"
	"github.com/salubra-ai/salubra/internal/core/filetype"
	"github.com/salubra-ai/salubra/internal/core/retry"
	"github.com/salubra-ai/salubra/internal/models"
)

// Request describes one uploaded file awaiting ingestion. The document id
// is generated before enqueuing so the API can return it immediately.
type Request struct {
	DocumentID  string
	OwnerID     string
	Specialty   string
	Title       string
	FileName    string
	ContentType string
	StoragePath string
	FileSize    int64
}

// Ingestor runs the download-extract-chunk-embed-persist pipeline for a
// single document. Jobs are executed one at a time through the queue.
type Ingestor struct {
	db        core.DbClient
	store     core.ObjectClient
	embedder  core.EmbeddingProvider
	extractor *extract.Registry
	chunker   *Chunker
	queue     *Queue
	logger    *slog.Logger

	maxAttempts int
	baseDelay   time.Duration
}

func NewIngestor(
	db core.DbClient,
	store core.ObjectClient,
	embedder core.EmbeddingProvider,
	extractor *extract.Registry,
	chunker *Chunker,
	queue *Queue,
	logger *slog.Logger,
) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		db:          db,
		store:       store,
		embedder:    embedder,
		extractor:   extractor,
		chunker:     chunker,
		queue:       queue,
		logger:      logger,
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
	}
}

// Enqueue submits the request to the single-lane queue and returns a
// channel that receives the pipeline's final result.
func (in *Ingestor) Enqueue(req Request) <-chan error {
	return in.queue.Submit(func(ctx context.Context) error {
		return in.Process(ctx, req)
	})
}

// Process runs the full pipeline for one document. Once the document row
// exists, any failure finalizes it with status error; a document is never
// left in processing.
func (in *Ingestor) Process(ctx context.Context, req Request) error {
	log := in.logger.With("document_id", req.DocumentID, "file", req.FileName)
	log.Info("ingestion started")

	data, err := in.store.GetFile(ctx, req.StoragePath)
	if err != nil {
		return &core.DownloadError{Locator: req.StoragePath, Err: err}
	}

	ft := filetype.Detect(req.FileName, req.ContentType)
	if ft == filetype.Unknown {
		return fmt.Errorf("%q: %w", req.FileName, core.ErrUnsupportedFileType)
	}

	doc := &models.Document{
		ID:          req.DocumentID,
		OwnerID:     req.OwnerID,
		Specialty:   req.Specialty,
		Title:       req.Title,
		FileName:    req.FileName,
		FileType:    string(ft),
		FileSize:    req.FileSize,
		StoragePath: req.StoragePath,
		Status:      models.StatusProcessing,
	}
	if err := in.db.CreateDocument(ctx, doc); err != nil {
		return err
	}

	totalChunks, err := in.run(ctx, req, ft, data)
	if err != nil {
		log.Error("ingestion failed", "error", err)
		in.finalizeError(ctx, req.DocumentID, err)
		return err
	}

	meta := map[string]string{
		"embedding_model": in.embedder.Model(),
		"file_type":       string(ft),
	}
	if err := in.db.FinalizeDocument(ctx, req.DocumentID, models.StatusReady, totalChunks, meta); err != nil {
		log.Error("ready finalize failed", "error", err)
		in.finalizeError(ctx, req.DocumentID, err)
		return err
	}
	log.Info("ingestion complete", "chunks", totalChunks)
	return nil
}

// run executes the steps after the document row exists. It returns the
// chunk count for finalization.
func (in *Ingestor) run(ctx context.Context, req Request, ft filetype.Type, data []byte) (int, error) {
	text, err := in.extractor.Extract(ctx, ft, data, req.FileName)
	if err != nil {
		return 0, &core.StepError{Step: "extract", Err: err}
	}

	pieces := in.chunker.Split(text)
	if len(pieces) == 0 {
		return 0, &core.StepError{Step: "chunk", Err: core.ErrChunking}
	}

	chunks := make([]models.Chunk, 0, len(pieces))
	texts := make([]string, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, models.Chunk{
			ID:         uuid.NewString(),
			DocumentID: req.DocumentID,
			ChunkIndex: p.Index,
			Content:    p.Content,
			TokenCount: p.TokenCount,
		})
		texts = append(texts, p.Content)
	}
	if err := in.db.InsertChunks(ctx, chunks); err != nil {
		return 0, &core.StepError{Step: "persist_chunks", Err: err}
	}

	chunkIDs, err := in.db.ChunkIDsByIndex(ctx, req.DocumentID)
	if err != nil {
		return 0, &core.StepError{Step: "persist_chunks", Err: err}
	}

	var indexed []core.IndexedEmbedding
	err = retry.Do(ctx, in.maxAttempts, in.baseDelay, core.IsRetryable, func() error {
		var embedErr error
		indexed, embedErr = in.embedder.EmbedBatch(ctx, texts)
		return embedErr
	})
	if err != nil {
		return 0, &core.StepError{Step: "embed", Err: err}
	}
	if len(indexed) != len(texts) {
		return 0, &core.StepError{
			Step: "embed",
			Err:  fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(indexed), len(texts)),
		}
	}

	embeddings := make([]models.Embedding, 0, len(indexed))
	for _, e := range indexed {
		chunkID, ok := chunkIDs[e.Index]
		if !ok {
			return 0, &core.StepError{
				Step: "embed",
				Err:  fmt.Errorf("no chunk at index %d", e.Index),
			}
		}
		embeddings = append(embeddings, models.Embedding{
			ID:      uuid.NewString(),
			ChunkID: chunkID,
			Vector:  e.Vector,
			Model:   in.embedder.Model(),
		})
	}
	if err := in.db.InsertEmbeddings(ctx, embeddings); err != nil {
		return 0, &core.StepError{Step: "persist_embeddings", Err: err}
	}

	return len(chunks), nil
}

// finalizeError marks the document failed. The pipeline context may
// already be cancelled, so finalization gets its own deadline.
func (in *Ingestor) finalizeError(ctx context.Context, documentID string, cause error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	meta := map[string]string{"error": cause.Error()}
	if err := in.db.FinalizeDocument(fctx, documentID, models.StatusError, 0, meta); err != nil {
		in.logger.Error("failed to finalize errored document",
			"document_id", documentID, "error", err)
	}
}
