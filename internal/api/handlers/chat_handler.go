package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/salubra-ai/salubra/internal/chat"
)

type ChatHandler struct {
	orchestrator *chat.Orchestrator
}

func NewChatHandler(o *chat.Orchestrator) *ChatHandler {
	return &ChatHandler{orchestrator: o}
}

type chatAttachment struct {
	Kind          string `json:"kind"`
	MimeType      string `json:"mime_type"`
	Name          string `json:"name"`
	Data          []byte `json:"data,omitempty"`
	ExtractedText string `json:"extracted_text,omitempty"`
}

type chatMessage struct {
	Role        string           `json:"role"`
	Text        string           `json:"text"`
	Attachments []chatAttachment `json:"attachments,omitempty"`
}

type chatRequest struct {
	Specialty        string        `json:"specialty"`
	Messages         []chatMessage `json:"messages"`
	DisableRetrieval bool          `json:"disable_retrieval"`
}

type chatResponse struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Model  string `json:"model"`
	Error  string `json:"error,omitempty"`
}

// Chat runs one conversation turn. Completion failures come back as a
// 502 with a structured body, never as a dropped connection.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "messages must not be empty", http.StatusBadRequest)
		return
	}

	messages := make([]chat.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msg := chat.Message{Role: m.Role, Text: m.Text}
		for _, a := range m.Attachments {
			if a.Kind != chat.KindImage && a.Kind != chat.KindDocument {
				http.Error(w, "unknown attachment kind: "+a.Kind, http.StatusBadRequest)
				return
			}
			msg.Attachments = append(msg.Attachments, chat.Attachment{
				Kind:          a.Kind,
				MimeType:      a.MimeType,
				Name:          a.Name,
				Data:          a.Data,
				ExtractedText: a.ExtractedText,
			})
		}
		messages = append(messages, msg)
	}

	resp := h.orchestrator.Respond(r.Context(), chat.Request{
		Specialty:        req.Specialty,
		Messages:         messages,
		DisableRetrieval: req.DisableRetrieval,
	})

	w.Header().Set("Content-Type", "application/json")
	if resp.Failed {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(chatResponse{Error: resp.Error, Model: resp.Model})
		return
	}
	json.NewEncoder(w).Encode(chatResponse{
		Text:   resp.Text,
		Source: resp.Source,
		Model:  resp.Model,
	})
}
