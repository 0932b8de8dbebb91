package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/salubra-ai/salubra/internal/core"
)

// WhisperTranscriber converts audio to text through the
// /audio/transcriptions endpoint.
type WhisperTranscriber struct {
	client *OpenAIClient
	model  string
}

var _ core.TranscriptionProvider = (*WhisperTranscriber)(nil)

func NewWhisperTranscriber(client *OpenAIClient, model string) *WhisperTranscriber {
	return &WhisperTranscriber{client: client, model: model}
}

// Transcribe uploads the audio bytes as a multipart form and returns the
// recognized text.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcription input is empty")
	}
	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build transcription form failed: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("write transcription form failed: %w", err)
	}
	if err := mw.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("write transcription form failed: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close transcription form failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.client.url("/audio/transcriptions"), &body)
	if err != nil {
		return "", fmt.Errorf("build transcription request failed: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	t.client.authorize(req)

	resp, err := t.client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", &core.TranscriptionError{Status: resp.StatusCode, Body: string(raw)}
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse transcription json failed: %w", err)
	}
	return parsed.Text, nil
}
