// Package arb detects momentary cross-venue price dislocations: a bid on
// one venue standing above an ask on another for the same symbol.
package arb

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/metrics"
)

// FindInQuotes scans every ordered venue pair in the quote set and
// returns the opportunities whose spread clears minSpread (a fraction,
// 0.001 = 10 bps), sorted widest first. A venue is never paired with
// itself and quotes are assumed usable (two-sided, not crossed).
func FindInQuotes(symbol string, quotes []domain.Quote, minSpread float64, now time.Time) []domain.ArbOpportunity {
	minBps := minSpread * 1e4

	var opps []domain.ArbOpportunity
	for _, buy := range quotes {
		for _, sell := range quotes {
			if buy.Venue == sell.Venue {
				continue
			}
			if sell.Bid <= buy.Ask || buy.Ask <= 0 {
				continue
			}
			spreadBps := (sell.Bid - buy.Ask) / buy.Ask * 1e4
			if spreadBps < minBps {
				continue
			}
			size := buy.AskQty
			if sell.BidQty < size {
				size = sell.BidQty
			}
			opps = append(opps, domain.ArbOpportunity{
				ID:            uuid.NewString(),
				Symbol:        symbol,
				BuyVenue:      buy.Venue,
				SellVenue:     sell.Venue,
				BuyPrice:      buy.Ask,
				SellPrice:     sell.Bid,
				SpreadBps:     spreadBps,
				ProfitPerUnit: sell.Bid - buy.Ask,
				Size:          size,
				DetectedAt:    now,
			})
		}
	}
	sort.Slice(opps, func(i, j int) bool { return opps[i].SpreadBps > opps[j].SpreadBps })
	return opps
}

// QuoteSource is the live-quote dependency of the Detector, satisfied by
// the aggregator.
type QuoteSource interface {
	AllPrices(ctx context.Context, symbol string) []domain.Quote
}

// Detector scans live venue quotes for arbitrage.
type Detector struct {
	quotes    QuoteSource
	minSpread float64
	logger    *slog.Logger
}

// NewDetector builds a detector with a default minimum spread fraction
// used when a scan does not override it.
func NewDetector(quotes QuoteSource, minSpread float64, logger *slog.Logger) *Detector {
	return &Detector{
		quotes:    quotes,
		minSpread: minSpread,
		logger:    logger.With("component", "arb"),
	}
}

// Scan fetches live quotes for symbol and returns the opportunities
// clearing minSpread; minSpread <= 0 falls back to the detector default.
func (d *Detector) Scan(ctx context.Context, symbol string, minSpread float64) []domain.ArbOpportunity {
	if minSpread <= 0 {
		minSpread = d.minSpread
	}
	quotes := d.quotes.AllPrices(ctx, symbol)
	opps := FindInQuotes(symbol, quotes, minSpread, time.Now().UTC())
	for _, opp := range opps {
		metrics.ArbOpportunities.WithLabelValues(symbol).Inc()
		metrics.ArbSpreadBps.Observe(opp.SpreadBps)
		d.logger.Info("arbitrage opportunity",
			"symbol", symbol,
			"buy_venue", opp.BuyVenue, "sell_venue", opp.SellVenue,
			"buy_price", opp.BuyPrice, "sell_price", opp.SellPrice,
			"spread_bps", opp.SpreadBps)
	}
	return opps
}
