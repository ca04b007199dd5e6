package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/logging"
)

// HealthHandler responds with service health information.
type HealthHandler struct {
	// Check reports whether the database is reachable. Nil skips the probe.
	Check func(ctx context.Context) error
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	payload := map[string]string{"status": "ok"}

	if h.Check != nil {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.Check(probeCtx); err != nil {
			logging.FromContext(ctx).Error("health check failed", "error", err)
			payload["status"] = "unavailable"
			respondJSON(ctx, w, http.StatusServiceUnavailable, payload)
			return
		}
	}

	respondJSON(ctx, w, http.StatusOK, payload)
}
