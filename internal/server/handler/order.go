package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/service"
	"github.com/alanyoungcy/sorbot/internal/symbol"
)

// OrderHandler serves the order routing and execution history endpoints.
type OrderHandler struct {
	svc    *service.OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logHandler(logger, "order")}
}

// placeOrderRequest is the JSON body for PlaceOrder.
type placeOrderRequest struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   float64 `json:"quantity"`
	GuardPrice float64 `json:"guard_price,omitempty"`
	Venue      string  `json:"venue,omitempty"`
}

// PlaceOrder routes one order intent and responds with the execution result.
// The HTTP status reflects acceptance of the request; routing failures are
// reported inside the result body with success=false.
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	intent := domain.OrderIntent{
		Symbol:     symbol.Normalize(req.Symbol),
		Side:       domain.OrderSide(req.Side),
		Quantity:   req.Quantity,
		GuardPrice: req.GuardPrice,
		Venue:      req.Venue,
	}

	res, err := h.svc.PlaceOrder(r.Context(), intent)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrder):
			writeError(w, http.StatusBadRequest, "symbol, side and a positive quantity are required")
		case errors.Is(err, domain.ErrRateLimited):
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "order rate limit exceeded")
		default:
			h.logger.Error("place order failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "order placement failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// GetOrder responds with one stored execution.
// GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	res, err := h.svc.GetExecution(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("get order failed", slog.String("id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "order lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ListOrders responds with stored executions newest first. Query params:
// limit, offset, symbol, venue, since, until.
// GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	results, err := h.svc.ListExecutions(r.Context(), opts)
	if err != nil {
		h.logger.Error("list orders failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "order listing failed")
		return
	}
	if results == nil {
		results = []domain.ExecutionResult{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orders": results,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
