package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/noema-ai/noema/internal/domain"
	"github.com/noema-ai/noema/internal/service"
)

type IngestHandler struct {
	svc *service.IngestionService
}

func NewIngestHandler(svc *service.IngestionService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// Ingest handles POST /v1/ingest.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var input domain.MemoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Ingest(r.Context(), input)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// DryRun handles POST /v1/ingest/dry-run.
func (h *IngestHandler) DryRun(w http.ResponseWriter, r *http.Request) {
	var input domain.MemoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.DryRunIngest(r.Context(), input)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Validate handles POST /v1/ingest/validate.
func (h *IngestHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var input domain.MemoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.ValidateInput(input); err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}
