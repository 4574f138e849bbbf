package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/response"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler responds with service health information.
type HealthHandler struct {
	DB Pinger
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()

		if err := h.DB.Ping(pingCtx); err != nil {
			logging.FromContext(ctx).Warn("health check failed", "error", err)
			response.JSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}

	response.JSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
