package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/service"
)

// PriceHandler serves the market data endpoints.
type PriceHandler struct {
	svc *service.PriceService
	// defaultDepthBps applies when the depth query omits bps.
	defaultDepthBps float64
	logger          *slog.Logger
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(svc *service.PriceService, defaultDepthBps float64, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{
		svc:             svc,
		defaultDepthBps: defaultDepthBps,
		logger:          logHandler(logger, "price"),
	}
}

// GetPrices responds with every venue's top of book for a symbol.
// GET /api/prices/{symbol}
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	sym := symbolParam(r)
	if sym == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	quotes, err := h.svc.AllPrices(r.Context(), sym)
	if err != nil {
		if errors.Is(err, domain.ErrNoQuotes) {
			writeError(w, http.StatusNotFound, "no venue returned a usable quote for "+sym)
			return
		}
		h.logger.Error("all prices failed", slog.String("symbol", sym), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "price lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": sym,
		"quotes": quotes,
	})
}

// GetBest responds with the cross-venue best bid/offer for a symbol.
// GET /api/best/{symbol}
func (h *PriceHandler) GetBest(w http.ResponseWriter, r *http.Request) {
	sym := symbolParam(r)
	if sym == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	best, err := h.svc.BestPrices(r.Context(), sym)
	if err != nil {
		if errors.Is(err, domain.ErrNoQuotes) {
			writeError(w, http.StatusNotFound, "no venue returned a usable quote for "+sym)
			return
		}
		h.logger.Error("best prices failed", slog.String("symbol", sym), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "price lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, best)
}

// GetDepth responds with per-venue executable quantity within a basis-point
// budget. Query params: side (buy|sell, required), bps (optional).
// GET /api/depth/{symbol}?side=buy&bps=20
func (h *PriceHandler) GetDepth(w http.ResponseWriter, r *http.Request) {
	sym := symbolParam(r)
	if sym == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	side := domain.OrderSide(r.URL.Query().Get("side"))
	if !side.Valid() {
		writeError(w, http.StatusBadRequest, "side must be buy or sell")
		return
	}

	bps := h.defaultDepthBps
	if v := r.URL.Query().Get("bps"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			writeError(w, http.StatusBadRequest, "bps must be a non-negative number")
			return
		}
		bps = f
	}

	snaps, err := h.svc.Depth(r.Context(), sym, side, bps)
	if err != nil {
		if errors.Is(err, domain.ErrNoQuotes) {
			writeError(w, http.StatusNotFound, "no venue returned depth for "+sym)
			return
		}
		h.logger.Error("depth failed", slog.String("symbol", sym), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "depth lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":     sym,
		"side":       side,
		"bps_budget": bps,
		"venues":     snaps,
	})
}
