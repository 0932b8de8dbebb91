package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/salubra-ai/salubra/internal/core"
	"github.com/salubra-ai/salubra/internal/ingest"
)

const maxUploadBytes = 50 << 20 // 50 MB

type DocumentHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient
	ingestor     *ingest.Ingestor
	logger       *slog.Logger
}

func NewDocumentHandler(dbclient core.DbClient, objectclient core.ObjectClient, ing *ingest.Ingestor, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{dbclient: dbclient, objectclient: objectclient, ingestor: ing, logger: logger}
}

// UploadDocument stores the file in object storage, enqueues ingestion,
// and answers 202 with the document id so the caller can poll status.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	specialty := r.FormValue("specialty")
	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Path components are stripped so the client cannot steer the key.
	cleanName := filepath.Base(header.Filename)
	docID := uuid.NewString()
	key := fmt.Sprintf("documents/%s/%s", docID, cleanName)

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if _, err := h.objectclient.UploadFile(uploadCtx, key, data, contentType); err != nil {
		h.logger.Error("upload failed", "key", key, "error", err)
		http.Error(w, "upload failed", http.StatusBadGateway)
		return
	}

	done := h.ingestor.Enqueue(ingest.Request{
		DocumentID:  docID,
		OwnerID:     r.FormValue("owner_id"),
		Specialty:   specialty,
		Title:       title,
		FileName:    cleanName,
		ContentType: contentType,
		StoragePath: key,
		FileSize:    int64(len(data)),
	})

	// A full queue delivers its rejection immediately; catch it here so
	// the caller gets a 503 instead of a document id that will never
	// gain a row.
	select {
	case err := <-done:
		if errors.Is(err, ingest.ErrQueueFull) {
			h.logger.Warn("ingestion queue full, rejecting upload", "document_id", docID)
			if delErr := h.objectclient.DeleteFile(r.Context(), key); delErr != nil {
				h.logger.Warn("stored object not deleted", "key", key, "error", delErr)
			}
			http.Error(w, "ingestion queue is full, retry later", http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			h.logger.Warn("ingestion did not complete", "document_id", docID, "error", err)
		}
	default:
		go func() {
			if err := <-done; err != nil {
				h.logger.Warn("ingestion did not complete", "document_id", docID, "error", err)
			}
		}()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"document_id": docID,
		"status":      "processing",
	})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := h.dbclient.ListDocuments(r.Context(), r.URL.Query().Get("specialty"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documents)
}

// GetDocument returns one document, including its processing status.
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.dbclient.GetDocumentByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

// DeleteDocument removes the document row (chunks and embeddings cascade)
// and best-effort deletes the stored object.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := h.dbclient.GetDocumentByID(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	if err := h.dbclient.DeleteDocument(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.objectclient.DeleteFile(r.Context(), doc.StoragePath); err != nil {
		h.logger.Warn("stored object not deleted", "key", doc.StoragePath, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
