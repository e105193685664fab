package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/tradedesk/internal/store"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo   store.Repository
	status StatusSource
}

// NewHealthHandler creates a new health handler. status may be nil.
func NewHealthHandler(repo store.Repository, status StatusSource) *HealthHandler {
	return &HealthHandler{repo: repo, status: status}
}

// Health returns the health of the server and its dependencies. Only the
// database affects the status code; the trading API is reported as seen by
// the last availability check.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"server": "ok"}
	result := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		result["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	checks["trading_api"] = "unknown"
	if h.status != nil {
		if available := h.status.Available(); available != nil {
			if *available {
				checks["trading_api"] = "available"
			} else {
				checks["trading_api"] = "unavailable"
			}
		}
	}

	JSON(w, statusCode, result)
}

// Status returns the latest availability snapshot.
func (h *HealthHandler) Status(w http.ResponseWriter, _ *http.Request) {
	if h.status == nil {
		Error(w, http.StatusServiceUnavailable, "status monitor disabled")
		return
	}
	JSON(w, http.StatusOK, h.status.Current())
}

// RegisterRoutes registers the health and status routes.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/status", h.Status)
}
