package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/sorbot/internal/service"
)

// StatusHandler serves the system status endpoint.
type StatusHandler struct {
	svc    *service.StatusService
	logger *slog.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(svc *service.StatusService, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{svc: svc, logger: logHandler(logger, "status")}
}

// GetStatus responds with mode, uptime and per-venue health.
// GET /api/system/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status(r.Context()))
}
