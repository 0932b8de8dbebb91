// Package llm implements the external AI provider clients: an
// OpenAI-compatible HTTP client for embeddings, transcription and chat
// completions, and a Gemini embedder alternative.
package llm

import (
	"net/http"
	"strings"
	"time"
)

// OpenAIClient is a thin client for any OpenAI-compatible API surface.
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewOpenAIClient creates a client bound to baseURL (e.g.
// "https://api.openai.com/v1"). Every request is bounded by the client
// timeout so a hung call cannot stall the single ingestion lane.
func NewOpenAIClient(baseURL, apiKey string) *OpenAIClient {
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (c *OpenAIClient) url(path string) string {
	return c.baseURL + path
}

func (c *OpenAIClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
