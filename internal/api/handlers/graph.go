package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/noema-ai/noema/internal/service"
)

type GraphHandler struct {
	svc *service.GraphService
}

func NewGraphHandler(svc *service.GraphService) *GraphHandler {
	return &GraphHandler{svc: svc}
}

// DeprecationChain handles GET /v1/beliefs/{id}/deprecation-chain.
func (h *GraphHandler) DeprecationChain(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	chain, err := h.svc.FindDeprecationChain(r.Context(), id)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chain": chain, "length": len(chain)})
}

// Related handles GET /v1/beliefs/{id}/related?depth=N.
func (h *GraphHandler) Related(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}
	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))

	related, err := h.svc.FindRelated(r.Context(), id, depth)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"related": related, "count": len(related)})
}

// Clusters handles GET /v1/agents/{agentID}/graph/clusters?threshold=T.
func (h *GraphHandler) Clusters(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	threshold := 0.5
	if t, err := strconv.ParseFloat(r.URL.Query().Get("threshold"), 32); err == nil {
		threshold = t
	}

	clusters, err := h.svc.FindStronglyConnectedClusters(r.Context(), agentID, float32(threshold))
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters, "count": len(clusters)})
}

// Deprecated handles GET /v1/agents/{agentID}/graph/deprecated.
func (h *GraphHandler) Deprecated(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	ids, err := h.svc.FindDeprecatedBeliefIDs(r.Context(), agentID)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"belief_ids": ids, "count": len(ids)})
}

// Validate handles GET /v1/agents/{agentID}/graph/validate.
func (h *GraphHandler) Validate(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	report, err := h.svc.ValidateStructure(r.Context(), agentID)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type deactivateEdgeRequest struct {
	Reason string `json:"reason"`
}

// DeactivateEdge handles POST /v1/relationships/{id}/deactivate.
func (h *GraphHandler) DeactivateEdge(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relationship id")
		return
	}

	var req deactivateEdgeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.svc.Deactivate(r.Context(), id, req.Reason); err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
