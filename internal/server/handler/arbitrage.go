package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/service"
	"github.com/alanyoungcy/sorbot/internal/symbol"
)

// ArbHandler serves cross-venue arbitrage endpoints.
type ArbHandler struct {
	svc    *service.ArbService
	logger *slog.Logger
}

// NewArbHandler creates an ArbHandler.
func NewArbHandler(svc *service.ArbService, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{svc: svc, logger: logHandler(logger, "arbitrage")}
}

// ScanSymbol runs an on-demand arbitrage scan for one symbol. Optional
// min_spread overrides the configured threshold (in basis points).
// GET /api/arbitrage/{symbol}
func (h *ArbHandler) ScanSymbol(w http.ResponseWriter, r *http.Request) {
	sym := symbolParam(r)
	if sym == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	minSpread := 0.0
	if raw := r.URL.Query().Get("min_spread"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "min_spread must be a non-negative number")
			return
		}
		minSpread = v
	}

	opps := h.svc.Scan(r.Context(), sym, minSpread)
	if opps == nil {
		opps = []domain.ArbOpportunity{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":        sym,
		"opportunities": opps,
	})
}

// ListRecent responds with recently detected opportunities, newest first.
// GET /api/arbitrage/recent
func (h *ArbHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sym := ""
	if raw := q.Get("symbol"); raw != "" {
		sym = symbol.Normalize(raw)
	}

	limit := 50
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if v > 500 {
			v = 500
		}
		limit = v
	}

	opps, err := h.svc.Recent(r.Context(), sym, limit)
	if err != nil {
		h.logger.Error("list recent opportunities failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "opportunity listing failed")
		return
	}
	if opps == nil {
		opps = []domain.ArbOpportunity{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": opps,
		"limit":         limit,
	})
}
