package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/noema-ai/noema/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeKindError maps an error's kind to a status code. The error text,
// including any wrapped cause, crosses the boundary, except for storage and
// internal errors, which are reported as "internal error". Stack traces never do.
func writeKindError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	message := err.Error()

	switch kind {
	case apperr.InvalidInput:
		status = http.StatusBadRequest
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.Overloaded:
		status = http.StatusTooManyRequests
	case apperr.Timeout, apperr.Canceled:
		status = http.StatusGatewayTimeout
	case apperr.StorageError, apperr.Internal:
		status = http.StatusInternalServerError
		message = "internal error"
	case apperr.EmbeddingUnavailable, apperr.CategorizationUnavailable, apperr.ExtractionUnavailable, apperr.Unsupported:
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, errorResponse{Error: message, Kind: string(kind)})
}
