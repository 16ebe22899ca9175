package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/noema-ai/noema/internal/domain"
	"github.com/noema-ai/noema/internal/service"
	"github.com/noema-ai/noema/internal/similarity"
)

type MemoryHandler struct {
	svc *service.MemoryService
}

func NewMemoryHandler(svc *service.MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

// Get handles GET /v1/memories/{id}.
func (h *MemoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ListByAgent handles GET /v1/agents/{agentID}/memories.
func (h *MemoryHandler) ListByAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	opts := domain.FilterOptions{
		Category: r.URL.Query().Get("category"),
		Source:   r.URL.Query().Get("source"),
	}

	memories, err := h.svc.List(r.Context(), agentID, opts, limit)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": memories, "count": len(memories)})
}

type searchRequest struct {
	AgentID         string    `json:"agent_id"`
	Query           string    `json:"query"`
	Vector          []float32 `json:"vector,omitempty"`
	Threshold       float32   `json:"threshold"`
	Limit           int       `json:"limit"`
	IncludeInactive bool      `json:"include_inactive"`
}

// Search handles POST /v1/memories/search.
func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required")
		return
	}
	if req.Query == "" && len(req.Vector) == 0 {
		writeError(w, http.StatusBadRequest, "query or vector is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	results, err := h.svc.Search(r.Context(), similarity.Query{
		Text:      req.Query,
		Vector:    req.Vector,
		AgentID:   req.AgentID,
		Threshold: req.Threshold,
		Limit:     req.Limit,
	})
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

// Delete handles DELETE /v1/memories/{id}.
func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeKindError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
