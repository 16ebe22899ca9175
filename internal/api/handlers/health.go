package handlers

import (
	"net/http"

	"github.com/noema-ai/noema/internal/service"
)

// ServerStats are process-level counters collected by the router.
type ServerStats struct {
	UptimeSeconds int64 `json:"uptime_seconds"`
	Requests      int64 `json:"requests"`
	Errors        int64 `json:"errors"`
}

type HealthHandler struct {
	ingestion   *service.IngestionService
	serverStats func() ServerStats
}

func NewHealthHandler(ingestion *service.IngestionService, serverStats func() ServerStats) *HealthHandler {
	return &HealthHandler{ingestion: ingestion, serverStats: serverStats}
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.ingestion.IsHealthy(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats handles GET /stats.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"server":    h.serverStats(),
		"ingestion": h.ingestion.Statistics(),
	})
}
