package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/salubra-ai/salubra/internal/rag"
)

type KnowledgeHandler struct {
	searcher *rag.Searcher
}

func NewKnowledgeHandler(s *rag.Searcher) *KnowledgeHandler {
	return &KnowledgeHandler{searcher: s}
}

type searchRequest struct {
	Query     string `json:"query"`
	Specialty string `json:"specialty"`
}

// Search runs a thresholded similarity lookup and returns ranked chunks.
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query must not be empty", http.StatusBadRequest)
		return
	}

	results, err := h.searcher.Search(r.Context(), req.Query, req.Specialty)
	if err != nil {
		http.Error(w, "search failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"results": results,
		"count":   len(results),
	})
}
