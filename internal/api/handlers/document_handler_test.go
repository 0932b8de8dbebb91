package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salubra-ai/salubra/internal/core"
	"github.com/salubra-ai/salubra/internal/core/extract"
	"github.com/salubra-ai/salubra/internal/ingest"
)

type stubStore struct {
	objects map[string][]byte
}

func (s *stubStore) UploadFile(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return "https://bucket/" + key, nil
}

func (s *stubStore) GetFile(ctx context.Context, key string) ([]byte, error) {
	return s.objects[key], nil
}

func (s *stubStore) DeleteFile(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]core.IndexedEmbedding, error) {
	out := make([]core.IndexedEmbedding, len(texts))
	for i := range texts {
		out[i] = core.IndexedEmbedding{Index: i, Vector: []float32{0.1}}
	}
	return out, nil
}

func (stubEmbedder) Model() string { return "stub" }

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return "", nil
}

func uploadRequest(t *testing.T) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "guia.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Contenido del documento."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadDocumentFullQueueAnswers503(t *testing.T) {
	store := &stubStore{}
	// Queue with capacity one and no consumer: the first submit fills
	// it, the upload's submit is rejected outright.
	queue := ingest.NewQueue(1, nil)
	queue.Submit(func(ctx context.Context) error { return nil })

	ingestor := ingest.NewIngestor(
		nil, store, stubEmbedder{},
		extract.NewRegistry(stubTranscriber{}),
		ingest.NewChunker(), queue, nil,
	)
	h := NewDocumentHandler(nil, store, ingestor, nil)

	rec := httptest.NewRecorder()
	h.UploadDocument(rec, uploadRequest(t))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, store.objects, "rejected upload must not leave an orphaned object")
}

func TestUploadDocumentAccepted(t *testing.T) {
	store := &stubStore{}
	queue := ingest.NewQueue(4, nil)

	ingestor := ingest.NewIngestor(
		nil, store, stubEmbedder{},
		extract.NewRegistry(stubTranscriber{}),
		ingest.NewChunker(), queue, nil,
	)
	h := NewDocumentHandler(nil, store, ingestor, nil)

	rec := httptest.NewRecorder()
	h.UploadDocument(rec, uploadRequest(t))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "document_id")
	assert.Len(t, store.objects, 1)
}
