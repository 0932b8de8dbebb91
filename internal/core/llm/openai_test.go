package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salubra-ai/salubra/internal/core"
)

func TestEmbedBatchParsesIndexedVectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, []string{"alpha", "beta"}, req.Input)

		// Data array deliberately out of order; the index field is
		// authoritative.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.4,0.5]},
			{"index":0,"embedding":[0.1,0.2]}
		]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(NewOpenAIClient(srv.URL, "test-key"), "text-embedding-3-small")
	out, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	byIndex := map[int][]float32{}
	for _, emb := range out {
		byIndex[emb.Index] = emb.Vector
	}
	assert.Equal(t, []float32{0.1, 0.2}, byIndex[0])
	assert.Equal(t, []float32{0.4, 0.5}, byIndex[1])
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	e := NewOpenAIEmbedder(NewOpenAIClient("http://unused", ""), "m")
	out, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEmbedBatchErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(NewOpenAIClient(srv.URL, "k"), "m")
	_, err := e.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)

	var embErr *core.EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, http.StatusTooManyRequests, embErr.Status)
	assert.Contains(t, embErr.Body, "rate limited")
	assert.True(t, core.IsRetryable(err))
}

func TestEmbedBatchCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(NewOpenAIClient(srv.URL, "k"), "m")
	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "mismatch")
}

func TestTranscribeSendsMultipartAndParsesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "memo.wav", header.Filename)

		_, _ = w.Write([]byte(`{"text":"hola mundo"}`))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber(NewOpenAIClient(srv.URL, "k"), "whisper-1")
	text, err := tr.Transcribe(context.Background(), []byte("RIFFdata"), "memo.wav")
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", text)
}

func TestTranscribeErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("unsupported format"))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber(NewOpenAIClient(srv.URL, "k"), "whisper-1")
	_, err := tr.Transcribe(context.Background(), []byte("x"), "a.wav")

	var trErr *core.TranscriptionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, http.StatusBadRequest, trErr.Status)
	assert.False(t, core.IsRetryable(err))
}

func TestTranscribeRejectsEmptyAudio(t *testing.T) {
	tr := NewWhisperTranscriber(NewOpenAIClient("http://unused", ""), "whisper-1")
	_, err := tr.Transcribe(context.Background(), nil, "a.wav")
	assert.Error(t, err)
}

func TestCompleteSendsPartsAndParsesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req struct {
			Model       string          `json:"model"`
			MaxTokens   int             `json:"max_tokens"`
			Temperature float64         `json:"temperature"`
			Messages    json.RawMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, 1024, req.MaxTokens)
		assert.Contains(t, string(req.Messages), `"image_url"`)
		assert.Contains(t, string(req.Messages), `"detail":"high"`)

		_, _ = w.Write([]byte(`{"model":"gpt-4o-2024","choices":[{"message":{"content":"done"}}]}`))
	}))
	defer srv.Close()

	completer := NewOpenAICompleter(NewOpenAIClient(srv.URL, "k"))
	res, err := completer.Complete(context.Background(), core.CompletionRequest{
		Model:       "gpt-4o",
		MaxTokens:   1024,
		Temperature: 0.5,
		Messages: []core.ProviderMessage{
			{Role: "system", Content: "sys"},
			{Role: "user", Parts: []core.ContentPart{
				{Type: "text", Text: "what is this?"},
				{Type: "image_url", ImageURL: &core.ImageURL{URL: "data:image/png;base64,xxx", Detail: "high"}},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Text)
	assert.Equal(t, "gpt-4o-2024", res.Model)
}

func TestCompleteErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	completer := NewOpenAICompleter(NewOpenAIClient(srv.URL, "k"))
	_, err := completer.Complete(context.Background(), core.CompletionRequest{Model: "m"})

	var cErr *core.CompletionError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, http.StatusServiceUnavailable, cErr.Status)
	assert.True(t, core.IsRetryable(err))
}

func TestCompleteCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	completer := NewOpenAICompleter(NewOpenAIClient(srv.URL, "k"))
	_, err := completer.Complete(ctx, core.CompletionRequest{Model: "m"})
	assert.Error(t, err)
}
