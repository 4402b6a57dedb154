// Package aggregator fans quote requests out to every configured venue
// concurrently and folds the survivors into cross-venue views.
package aggregator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/sorbot/internal/depth"
	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/metrics"
	"github.com/alanyoungcy/sorbot/internal/venue"
)

const defaultVenueTimeout = 5 * time.Second

// Aggregator queries a fixed, ordered set of venue adapters. Venue order
// is the configuration order and decides ties in best-price selection.
type Aggregator struct {
	venues  []*venue.Adapter
	byID    map[string]*venue.Adapter
	timeout time.Duration
	logger  *slog.Logger
}

// New builds an aggregator over the given adapters. timeout bounds each
// individual venue call; 0 picks a default.
func New(venues []*venue.Adapter, timeout time.Duration, logger *slog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = defaultVenueTimeout
	}
	byID := make(map[string]*venue.Adapter, len(venues))
	for _, a := range venues {
		byID[a.ID()] = a
	}
	return &Aggregator{
		venues:  venues,
		byID:    byID,
		timeout: timeout,
		logger:  logger.With("component", "aggregator"),
	}
}

// Venues returns the adapters in configuration order.
func (g *Aggregator) Venues() []*venue.Adapter { return g.venues }

// Venue looks an adapter up by id.
func (g *Aggregator) Venue(id string) (*venue.Adapter, bool) {
	a, ok := g.byID[id]
	return a, ok
}

// AllPrices fetches the top of book from every venue concurrently and
// returns the usable quotes in venue configuration order. Failing,
// one-sided and crossed venues are dropped, never propagated; the slice
// is empty when nothing answered.
func (g *Aggregator) AllPrices(ctx context.Context, symbol string) []domain.Quote {
	results := make([]*domain.Quote, len(g.venues))
	eg, ctx := errgroup.WithContext(ctx)
	for i, a := range g.venues {
		eg.Go(func() error {
			vctx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()

			start := time.Now()
			q, err := a.TopOfBook(vctx, symbol)
			metrics.QuoteLatency.WithLabelValues(a.ID()).Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.QuoteFetches.WithLabelValues(a.ID(), "error").Inc()
				g.logger.Warn("venue quote failed",
					"venue", a.ID(), "symbol", symbol,
					"kind", string(domain.KindOf(err)), "error", err)
				return nil
			}
			if !q.TwoSided() || q.Crossed() {
				metrics.QuoteFetches.WithLabelValues(a.ID(), "unusable").Inc()
				g.logger.Debug("dropping unusable quote",
					"venue", a.ID(), "symbol", symbol, "bid", q.Bid, "ask", q.Ask)
				return nil
			}
			metrics.QuoteFetches.WithLabelValues(a.ID(), "ok").Inc()
			results[i] = &q
			return nil
		})
	}
	_ = eg.Wait()

	quotes := make([]domain.Quote, 0, len(results))
	for _, q := range results {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	return quotes
}

// BestPrices folds AllPrices into the cross-venue best bid and offer.
// Ties go to the venue listed first in the configuration. Returns
// domain.ErrNoQuotes when no venue produced a usable quote.
func (g *Aggregator) BestPrices(ctx context.Context, symbol string) (domain.BestPrices, error) {
	quotes := g.AllPrices(ctx, symbol)
	if len(quotes) == 0 {
		return domain.BestPrices{}, domain.ErrNoQuotes
	}

	best := domain.BestPrices{Symbol: symbol, Timestamp: time.Now().UTC()}
	for _, q := range quotes {
		if q.Bid > best.BestBid {
			best.BestBid = q.Bid
			best.BestBidVenue = q.Venue
		}
		if best.BestAsk == 0 || q.Ask < best.BestAsk {
			best.BestAsk = q.Ask
			best.BestAskVenue = q.Venue
		}
	}
	if best.BestBid > 0 {
		best.SpreadBps = (best.BestAsk - best.BestBid) / best.BestBid * 1e4
	}
	return best, nil
}

// DepthWithinBudget reports, venue by venue, how much quantity is
// executable within bps of each venue's own top of book and at what
// effective VWAP including the venue taker fee. Venues that fail the
// book fetch are dropped.
func (g *Aggregator) DepthWithinBudget(ctx context.Context, symbol string, side domain.OrderSide, bps float64) []domain.DepthSnapshot {
	results := make([]*domain.DepthSnapshot, len(g.venues))
	eg, ctx := errgroup.WithContext(ctx)
	for i, a := range g.venues {
		eg.Go(func() error {
			vctx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()

			book, err := a.Depth(vctx, symbol, 0)
			if err != nil {
				g.logger.Warn("venue depth failed",
					"venue", a.ID(), "symbol", symbol, "error", err)
				return nil
			}
			levels := book.Asks
			if side == domain.OrderSideSell {
				levels = book.Bids
			}
			qty, vwap := depth.WithinBudget(levels, side, bps, a.TakerFee(vctx, symbol))
			results[i] = &domain.DepthSnapshot{
				Venue:     a.ID(),
				Symbol:    symbol,
				Side:      side,
				BpsBudget: bps,
				Quantity:  qty,
				VWAP:      vwap,
			}
			return nil
		})
	}
	_ = eg.Wait()

	snaps := make([]domain.DepthSnapshot, 0, len(results))
	for _, s := range results {
		if s != nil {
			snaps = append(snaps, *s)
		}
	}
	return snaps
}
