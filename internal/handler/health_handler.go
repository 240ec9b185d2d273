package handler

import (
	"net/http"

	"replyflow/internal/service"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	healthService *service.HealthChecker
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(healthService *service.HealthChecker) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// HandleHealth handles GET requests to the /health endpoint
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}

	healthStatus := h.healthService.CheckHealth(r.Context())

	// A degraded API still accepts operator calls, only webhooks stop flowing.
	status := http.StatusOK
	if healthStatus.Status == service.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, healthStatus)
}
