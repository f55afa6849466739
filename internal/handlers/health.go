package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
)

const healthPingTimeout = 3 * time.Second

type HealthHandler struct {
	responder
	checker domain.HealthChecker
}

func NewHealthHandler(checker domain.HealthChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{responder: responder{logger: logger}, checker: checker}
}

type healthResponse struct {
	Status string              `json:"status"`
	Store  domain.HealthStatus `json:"store"`
}

// Health handles GET /health. It pings the store without reconnecting.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	status, resp := http.StatusOK, healthResponse{Status: "ok"}
	if err := h.checker.CheckConnection(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		status, resp.Status = http.StatusServiceUnavailable, "unavailable"
	}
	resp.Store = h.checker.Health()
	h.respondJSON(w, r, status, resp)
}
