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

type BeliefHandler struct {
	svc *service.BeliefService
}

func NewBeliefHandler(svc *service.BeliefService) *BeliefHandler {
	return &BeliefHandler{svc: svc}
}

// Get handles GET /v1/beliefs/{id}.
func (h *BeliefHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	b, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ListByAgent handles GET /v1/agents/{agentID}/beliefs.
func (h *BeliefHandler) ListByAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	opts := domain.FilterOptions{
		Category:        r.URL.Query().Get("category"),
		IncludeInactive: r.URL.Query().Get("include_inactive") == "true",
	}

	beliefs, err := h.svc.List(r.Context(), agentID, opts, limit)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"beliefs": beliefs, "count": len(beliefs)})
}

// Search handles POST /v1/beliefs/search.
func (h *BeliefHandler) Search(w http.ResponseWriter, r *http.Request) {
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
		Text:            req.Query,
		Vector:          req.Vector,
		AgentID:         req.AgentID,
		Threshold:       req.Threshold,
		Limit:           req.Limit,
		IncludeInactive: req.IncludeInactive,
	})
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

// ListConflicts handles GET /v1/agents/{agentID}/conflicts.
func (h *BeliefHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	unresolvedOnly := r.URL.Query().Get("unresolved") == "true"

	conflicts, err := h.svc.ListConflicts(r.Context(), agentID, unresolvedOnly)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts, "count": len(conflicts)})
}

type resolveConflictRequest struct {
	Resolution string  `json:"resolution"`
	Details    string  `json:"details"`
	Confidence float32 `json:"confidence"`
	Dismiss    bool    `json:"dismiss"`
}

// ResolveConflict handles POST /v1/conflicts/{id}/resolve.
func (h *BeliefHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conflict id")
		return
	}

	var req resolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Dismiss {
		if err := h.svc.DismissConflict(r.Context(), id, req.Details); err != nil {
			writeKindError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
		return
	}

	resolution := domain.ConflictResolution(req.Resolution)
	if !domain.ValidConflictResolution(resolution) {
		writeError(w, http.StatusBadRequest, "unknown resolution")
		return
	}
	if err := h.svc.ResolveConflict(r.Context(), id, resolution, req.Details, req.Confidence); err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
