package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/salubra-ai/salubra/internal/core"
)

// OpenAICompleter calls the /chat/completions endpoint with text and
// image parts.
type OpenAICompleter struct {
	client *OpenAIClient
}

var _ core.CompletionProvider = (*OpenAICompleter)(nil)

func NewOpenAICompleter(client *OpenAIClient) *OpenAICompleter {
	return &OpenAICompleter{client: client}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Complete sends the bounded completion request. The caller's context
// cancels the in-flight network call.
func (o *OpenAICompleter) Complete(ctx context.Context, req core.CompletionRequest) (core.CompletionResult, error) {
	messages := make([]wireMessage, len(req.Messages))
	for i, m := range req.Messages {
		if len(m.Parts) > 0 {
			messages[i] = wireMessage{Role: m.Role, Content: m.Parts}
		} else {
			messages[i] = wireMessage{Role: m.Role, Content: m.Content}
		}
	}

	reqBody := map[string]any{
		"model":       req.Model,
		"messages":    messages,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"stream":      false,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return core.CompletionResult{}, fmt.Errorf("marshal completion request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.client.url("/chat/completions"), bytes.NewReader(bodyBytes))
	if err != nil {
		return core.CompletionResult{}, fmt.Errorf("build completion request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	o.client.authorize(httpReq)

	resp, err := o.client.httpClient.Do(httpReq)
	if err != nil {
		return core.CompletionResult{}, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.CompletionResult{}, fmt.Errorf("read completion response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return core.CompletionResult{}, &core.CompletionError{Status: resp.StatusCode, Body: string(raw)}
	}

	var parsed struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return core.CompletionResult{}, fmt.Errorf("parse completion json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return core.CompletionResult{}, fmt.Errorf("empty completion choices")
	}

	model := parsed.Model
	if model == "" {
		model = req.Model
	}
	return core.CompletionResult{Text: parsed.Choices[0].Message.Content, Model: model}, nil
}
