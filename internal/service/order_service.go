package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/engine"
	"github.com/alanyoungcy/sorbot/internal/notify"
)

// OrderService accepts order intents, applies the placement rate limit,
// routes them through the engine, and persists the outcome.
type OrderService struct {
	engine   *engine.Engine
	store    domain.ExecutionStore
	limiter  domain.RateLimiter
	notifier *notify.Notifier
	perMin   int
	logger   *slog.Logger
}

// NewOrderService creates an OrderService. limiter and notifier may be nil;
// ordersPerMinute <= 0 disables the placement limit.
func NewOrderService(
	eng *engine.Engine,
	store domain.ExecutionStore,
	limiter domain.RateLimiter,
	notifier *notify.Notifier,
	ordersPerMinute int,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		engine:   eng,
		store:    store,
		limiter:  limiter,
		notifier: notifier,
		perMin:   ordersPerMinute,
		logger:   logger.With(slog.String("component", "order_service")),
	}
}

// PlaceOrder validates and routes one intent. The returned result is always
// populated; the error is non-nil only for pre-routing rejections (invalid
// intent, rate limit) so callers can map those to client errors.
func (s *OrderService) PlaceOrder(ctx context.Context, intent domain.OrderIntent) (domain.ExecutionResult, error) {
	if err := intent.Validate(); err != nil {
		return domain.ExecutionResult{}, err
	}

	if s.limiter != nil && s.perMin > 0 {
		allowed, err := s.limiter.Allow(ctx, "orders", s.perMin, time.Minute)
		if err != nil {
			return domain.ExecutionResult{}, fmt.Errorf("order_service: rate limiter: %w", err)
		}
		if !allowed {
			return domain.ExecutionResult{}, domain.ErrRateLimited
		}
	}

	res := s.engine.PlaceOrder(ctx, intent)

	// Persistence and notification are best effort; the routing outcome is
	// already decided and must reach the caller either way.
	if s.store != nil {
		if err := s.store.Create(ctx, res); err != nil {
			s.logger.Error("persist execution failed",
				slog.String("execution_id", res.ID),
				slog.String("error", err.Error()))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyExecution(ctx, res); err != nil {
			s.logger.Warn("execution notification failed",
				slog.String("execution_id", res.ID),
				slog.String("error", err.Error()))
		}
	}

	return res, nil
}

// GetExecution returns one stored execution by id.
func (s *OrderService) GetExecution(ctx context.Context, id string) (domain.ExecutionResult, error) {
	return s.store.GetByID(ctx, id)
}

// ListExecutions returns stored executions newest first.
func (s *OrderService) ListExecutions(ctx context.Context, opts domain.ListOpts) ([]domain.ExecutionResult, error) {
	return s.store.List(ctx, opts)
}

// CountExecutions returns the total number of stored executions.
func (s *OrderService) CountExecutions(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}
