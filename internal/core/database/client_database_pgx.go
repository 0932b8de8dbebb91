package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/salubra-ai/salubra/internal/config"
	"github.com/salubra-ai/salubra/internal/core"
	"github.com/salubra-ai/salubra/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	return json.Marshal(m)
}

func unmarshalMetadata(raw []byte) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// Documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	meta, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return &core.PersistenceError{Op: "create document", Err: err}
	}
	const q = `
		INSERT INTO documents
			(id, owner_id, specialty, title, file_name, file_type, file_size, storage_path, status, total_chunks, metadata, created_at)
		VALUES
			($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, now()))
	`
	var createdAt any
	if !doc.CreatedAt.IsZero() {
		createdAt = doc.CreatedAt
	}
	_, err = c.db.ExecContext(ctx, q,
		doc.ID, doc.OwnerID, doc.Specialty, doc.Title, doc.FileName, doc.FileType,
		doc.FileSize, doc.StoragePath, doc.Status, doc.TotalChunks, meta, createdAt)
	if err != nil {
		return &core.PersistenceError{Op: "create document", Err: err}
	}
	return nil
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, COALESCE(owner_id, ''), specialty, title, file_name, file_type, file_size, storage_path, status, total_chunks, metadata, created_at, processed_at
		FROM documents
		WHERE id = $1
	`
	var (
		d           models.Document
		meta        []byte
		processedAt sql.NullTime
	)
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.OwnerID, &d.Specialty, &d.Title, &d.FileName, &d.FileType,
		&d.FileSize, &d.StoragePath, &d.Status, &d.TotalChunks, &meta, &d.CreatedAt, &processedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &core.PersistenceError{Op: "get document", Err: err}
	}
	d.Metadata = unmarshalMetadata(meta)
	if processedAt.Valid {
		t := processedAt.Time
		d.ProcessedAt = &t
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocuments(ctx context.Context, specialty string) ([]models.Document, error) {
	const q = `
		SELECT id, COALESCE(owner_id, ''), specialty, title, file_name, file_type, file_size, storage_path, status, total_chunks, metadata, created_at, processed_at
		FROM documents
		WHERE $1 = '' OR specialty = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, specialty)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list documents", Err: err}
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var (
			d           models.Document
			meta        []byte
			processedAt sql.NullTime
		)
		if err := rows.Scan(
			&d.ID, &d.OwnerID, &d.Specialty, &d.Title, &d.FileName, &d.FileType,
			&d.FileSize, &d.StoragePath, &d.Status, &d.TotalChunks, &meta, &d.CreatedAt, &processedAt,
		); err != nil {
			return nil, &core.PersistenceError{Op: "list documents", Err: err}
		}
		d.Metadata = unmarshalMetadata(meta)
		if processedAt.Valid {
			t := processedAt.Time
			d.ProcessedAt = &t
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "list documents", Err: err}
	}
	return out, nil
}

// DeleteDocument removes a document; chunks and embeddings cascade.
func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return &core.PersistenceError{Op: "delete document", Err: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &core.PersistenceError{Op: "delete document", Err: fmt.Errorf("document not found: %s", id)}
	}
	return nil
}

// FinalizeDocument flips the lifecycle status and records total_chunks
// and the final metadata. processed_at is stamped here so a document is
// never left permanently in processing. Repeating a finalize that
// already landed is a no-op, not an error.
func (c *DatabaseClient) FinalizeDocument(ctx context.Context, id, status string, totalChunks int, metadata map[string]string) error {
	meta, err := marshalMetadata(metadata)
	if err != nil {
		return &core.PersistenceError{Op: "finalize document", Err: err}
	}
	const q = `
		UPDATE documents
		SET status = $2, total_chunks = $3, metadata = $4, processed_at = now()
		WHERE id = $1 AND status = 'processing'
	`
	res, err := c.db.ExecContext(ctx, q, id, status, totalChunks, meta)
	if err != nil {
		return &core.PersistenceError{Op: "finalize document", Err: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var current string
		if err := c.db.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&current); err != nil {
			return &core.PersistenceError{Op: "finalize document", Err: fmt.Errorf("document %s: %w", id, err)}
		}
		if err := finalizeConflict(current, status); err != nil {
			return &core.PersistenceError{Op: "finalize document", Err: fmt.Errorf("document %s: %w", id, err)}
		}
	}
	return nil
}

// finalizeConflict decides whether a finalize that updated no rows is a
// harmless repeat (document already carries the requested terminal
// status) or a real lifecycle violation.
func finalizeConflict(current, requested string) error {
	if current == requested {
		return nil
	}
	return fmt.Errorf("already finalized as %s, cannot move to %s", current, requested)
}

// Chunks

// InsertChunks inserts all chunks in a single transaction.
func (c *DatabaseClient) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return &core.PersistenceError{Op: "insert chunks", Err: err}
	}

	const q = `
		INSERT INTO chunks
			(id, document_id, chunk_index, content, token_count, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return &core.PersistenceError{Op: "insert chunks", Err: err}
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		meta, merr := marshalMetadata(ch.Metadata)
		if merr != nil {
			_ = tx.Rollback()
			return &core.PersistenceError{Op: "insert chunks", Err: merr}
		}
		var createdAt any
		if !ch.CreatedAt.IsZero() {
			createdAt = ch.CreatedAt
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.ChunkIndex, ch.Content, ch.TokenCount, meta, createdAt,
		); err != nil {
			_ = tx.Rollback()
			return &core.PersistenceError{Op: "insert chunks", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &core.PersistenceError{Op: "insert chunks", Err: err}
	}
	return nil
}

// ChunkIDsByIndex returns the persisted chunk id for each chunk_index of
// a document. Embeddings are generated in a separate batch call after
// chunk persistence, so this mapping wires them back to their chunks.
func (c *DatabaseClient) ChunkIDsByIndex(ctx context.Context, documentID string) (map[int]string, error) {
	const q = `SELECT chunk_index, id FROM chunks WHERE document_id = $1 ORDER BY chunk_index ASC`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, &core.PersistenceError{Op: "chunk ids by index", Err: err}
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var (
			idx int
			id  string
		)
		if err := rows.Scan(&idx, &id); err != nil {
			return nil, &core.PersistenceError{Op: "chunk ids by index", Err: err}
		}
		out[idx] = id
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "chunk ids by index", Err: err}
	}
	return out, nil
}

// Embeddings

// InsertEmbeddings inserts all embedding rows in a single transaction.
func (c *DatabaseClient) InsertEmbeddings(ctx context.Context, embeddings []models.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return &core.PersistenceError{Op: "insert embeddings", Err: err}
	}

	const q = `
		INSERT INTO embeddings (id, chunk_id, embedding, model)
		VALUES ($1, $2, $3, $4)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return &core.PersistenceError{Op: "insert embeddings", Err: err}
	}
	defer stmt.Close()

	for i := range embeddings {
		e := &embeddings[i]
		vec := pgvector.NewVector(e.Vector)
		if _, err := stmt.ExecContext(ctx, e.ID, e.ChunkID, vec, e.Model); err != nil {
			_ = tx.Rollback()
			return &core.PersistenceError{Op: "insert embeddings", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &core.PersistenceError{Op: "insert embeddings", Err: err}
	}
	return nil
}

// MatchChunks runs the similarity lookup through the match_chunks SQL
// function: cosine similarity descending, filtered to >= threshold,
// truncated to limit, optionally scoped to one specialty.
func (c *DatabaseClient) MatchChunks(ctx context.Context, queryVec []float32, threshold float64, limit int, specialty string) ([]models.SearchResult, error) {
	const q = `SELECT chunk_id, document_id, content, similarity, document_title, chunk_index, metadata
		FROM match_chunks($1, $2, $3, NULLIF($4, ''))`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, vec, threshold, limit, specialty)
	if err != nil {
		return nil, &core.PersistenceError{Op: "match chunks", Err: err}
	}
	defer rows.Close()

	var out []models.SearchResult
	for rows.Next() {
		var (
			r    models.SearchResult
			meta []byte
		)
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &r.Similarity, &r.DocumentTitle, &r.ChunkIndex, &meta); err != nil {
			return nil, &core.PersistenceError{Op: "match chunks", Err: err}
		}
		r.Metadata = unmarshalMetadata(meta)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "match chunks", Err: err}
	}
	return out, nil
}
