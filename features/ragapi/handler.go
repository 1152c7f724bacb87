package ragapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"docrag/internal/docstore"
	"docrag/internal/llm"
	"docrag/internal/middleware"
	"docrag/internal/rag"
)

type Handler struct {
	service *rag.Service
}

func NewHandler(service *rag.Service) *Handler {
	return &Handler{service: service}
}

// Search runs retrieval only and returns the raw hits.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query    string   `json:"query"`
		TopK     *int     `json:"top_k"`
		MinScore *float32 `json:"min_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Query is required", http.StatusBadRequest)
		return
	}

	results, err := h.service.Search(r.Context(), req.Query, &rag.SearchOptions{TopK: req.TopK, MinScore: req.MinScore})
	if err != nil {
		h.writeServiceError(r.Context(), w, err, req.Query)
		return
	}

	if results == nil {
		results = []docstore.SearchResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": results,
		"meta": map[string]int{"count": len(results)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Ask answers a question grounded in the indexed documents.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		TopK     *int   `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Question is required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Answer(r.Context(), req.Question, &rag.SearchOptions{TopK: req.TopK})
	if err != nil {
		h.writeServiceError(r.Context(), w, err, req.Question)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, query string) {
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		h.writeError(ctx, w, "SERVICE_UNAVAILABLE", "Gemini API key is not configured", http.StatusServiceUnavailable)
	case errors.Is(err, llm.ErrUnavailable):
		h.writeError(ctx, w, "SERVICE_UNAVAILABLE", "Language model is unavailable", http.StatusServiceUnavailable)
	default:
		slog.Error("rag request failed", "error", err, "query", query)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
