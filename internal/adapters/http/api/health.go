package api

import (
	"net/http"

	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/metrics"
)

// HealthHandler handles health check requests.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
}

// MetricsHandler serves the Prometheus scrape endpoint from the service's
// private registry.
func MetricsHandler() http.Handler {
	return metrics.Handler()
}
