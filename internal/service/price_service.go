// Package service composes the market data, routing and scanning primitives
// into the operations the HTTP API and background loops expose.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/sorbot/internal/aggregator"
	"github.com/alanyoungcy/sorbot/internal/domain"
)

// cacheStaleness is how old a cached quote may be before the service falls
// back to live REST fetches.
const cacheStaleness = 10 * time.Second

// PriceService answers price queries, preferring the feed-driven quote cache
// and falling back to live venue fan-out when the cache has nothing fresh.
type PriceService struct {
	agg    *aggregator.Aggregator
	cache  domain.QuoteCache
	logger *slog.Logger
}

// NewPriceService creates a PriceService. cache may be nil, in which case
// every query fans out to the venues.
func NewPriceService(agg *aggregator.Aggregator, cache domain.QuoteCache, logger *slog.Logger) *PriceService {
	return &PriceService{
		agg:    agg,
		cache:  cache,
		logger: logger.With(slog.String("component", "price_service")),
	}
}

// AllPrices returns per-venue top-of-book quotes for a symbol. Fresh cached
// quotes are served as-is; otherwise the venues are queried live and the
// cache is backfilled.
func (s *PriceService) AllPrices(ctx context.Context, symbol string) ([]domain.Quote, error) {
	if cached := s.cachedQuotes(ctx, symbol); len(cached) > 0 {
		return cached, nil
	}

	quotes := s.agg.AllPrices(ctx, symbol)
	if len(quotes) == 0 {
		return nil, domain.ErrNoQuotes
	}

	if s.cache != nil {
		for _, q := range quotes {
			if err := s.cache.SetQuote(ctx, q); err != nil {
				s.logger.Debug("cache backfill failed",
					slog.String("venue", q.Venue),
					slog.String("error", err.Error()))
			}
		}
	}
	return quotes, nil
}

// BestPrices returns the cross-venue best bid/offer for a symbol.
func (s *PriceService) BestPrices(ctx context.Context, symbol string) (domain.BestPrices, error) {
	return s.agg.BestPrices(ctx, symbol)
}

// Depth reports per-venue executable quantity within a basis-point budget of
// each venue's own top of book.
func (s *PriceService) Depth(ctx context.Context, symbol string, side domain.OrderSide, bps float64) ([]domain.DepthSnapshot, error) {
	if !side.Valid() {
		return nil, domain.ErrInvalidOrder
	}
	snaps := s.agg.DepthWithinBudget(ctx, symbol, side, bps)
	if len(snaps) == 0 {
		return nil, domain.ErrNoQuotes
	}
	return snaps, nil
}

// cachedQuotes returns the cache's fresh quotes for symbol, or nil when the
// cache is missing, empty, or stale.
func (s *PriceService) cachedQuotes(ctx context.Context, symbol string) []domain.Quote {
	if s.cache == nil {
		return nil
	}
	venues := make([]string, 0, len(s.agg.Venues()))
	for _, a := range s.agg.Venues() {
		venues = append(venues, a.ID())
	}
	quotes, err := s.cache.GetVenueQuotes(ctx, symbol, venues)
	if err != nil {
		s.logger.Debug("cache read failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()))
		return nil
	}

	fresh := quotes[:0]
	now := time.Now()
	for _, q := range quotes {
		if now.Sub(q.Timestamp) <= cacheStaleness {
			fresh = append(fresh, q)
		}
	}
	return fresh
}
