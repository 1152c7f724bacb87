package settings

import (
	"context"
	"encoding/json"
	"net/http"

	"docrag/internal/middleware"
	"docrag/internal/text"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"data": s})
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if s.ChunkOverlap < 0 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "chunk_overlap must not be negative", http.StatusBadRequest)
		return
	}
	// A zero chunk_size is stored as-is and ingestion falls back to the
	// default, so the overlap must fit the size that will actually be used.
	size := s.ChunkSize
	if size <= 0 {
		size = text.DefaultChunkSize
	}
	if s.ChunkOverlap >= size {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "chunk_overlap must be smaller than chunk_size", http.StatusBadRequest)
		return
	}
	if err := h.svc.Update(r.Context(), &s); err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
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

	json.NewEncoder(w).Encode(resp)
}
