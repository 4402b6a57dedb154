// Package paper simulates order execution against live market data.
// It delegates all read paths to a real exchange client and fills orders
// in memory by walking the current order book, so the full routing state
// machine can run in dry-run mode without touching venue balances.
package paper

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/venue"
)

// Exchange wraps a market-data source with simulated execution.
type Exchange struct {
	md venue.Exchange

	mu     sync.Mutex
	seq    int64
	orders map[string]venue.Order
}

// New builds a paper exchange over md.
func New(md venue.Exchange) *Exchange {
	return &Exchange{
		md:     md,
		orders: make(map[string]venue.Order),
	}
}

// Name returns the underlying venue identifier.
func (p *Exchange) Name() string { return p.md.Name() }

// FetchTicker delegates to the real venue.
func (p *Exchange) FetchTicker(ctx context.Context, symbol string) (venue.Ticker, error) {
	return p.md.FetchTicker(ctx, symbol)
}

// FetchOrderBook delegates to the real venue.
func (p *Exchange) FetchOrderBook(ctx context.Context, symbol string, limit int) (domain.OrderBook, error) {
	return p.md.FetchOrderBook(ctx, symbol, limit)
}

// LoadMarkets delegates to the real venue.
func (p *Exchange) LoadMarkets(ctx context.Context) (map[string]venue.Market, error) {
	return p.md.LoadMarkets(ctx)
}

// CreateLimitOrder fills the order against the live book immediately.
// FOK cancels unless the full amount crosses; IOC keeps the partial fill
// and cancels the rest; a plain limit rests with whatever crossed.
func (p *Exchange) CreateLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, amount, price float64, tif domain.TimeInForce) (venue.Order, error) {
	book, err := p.md.FetchOrderBook(ctx, symbol, 25)
	if err != nil {
		return venue.Order{}, fmt.Errorf("paper: book for fill simulation: %w", err)
	}

	levels := book.Asks
	if side == domain.OrderSideSell {
		levels = book.Bids
	}

	var filled, cost float64
	for _, lv := range levels {
		if side == domain.OrderSideBuy && lv.Price > price {
			break
		}
		if side == domain.OrderSideSell && lv.Price < price {
			break
		}
		take := min(lv.Quantity, amount-filled)
		filled += take
		cost += take * lv.Price
		if filled >= amount {
			break
		}
	}

	ord := venue.Order{Filled: filled, Cost: cost}
	if filled > 0 {
		ord.Average = cost / filled
	}
	switch {
	case tif == domain.TimeInForceFOK && filled < amount:
		ord.Status = domain.OrderStatusCancelled
		ord.Filled, ord.Average, ord.Cost = 0, 0, 0
	case filled >= amount:
		ord.Status = domain.OrderStatusFilled
	case tif == domain.TimeInForceIOC:
		ord.Status = domain.OrderStatusCancelled
	case filled > 0:
		ord.Status = domain.OrderStatusPartiallyFilled
	default:
		ord.Status = domain.OrderStatusOpen
	}

	p.mu.Lock()
	p.seq++
	ord.ID = "paper-" + strconv.FormatInt(p.seq, 10)
	p.orders[ord.ID] = ord
	p.mu.Unlock()
	return ord, nil
}

// FetchOrder returns the stored simulation state.
func (p *Exchange) FetchOrder(_ context.Context, id, _ string) (venue.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ord, ok := p.orders[id]
	if !ok {
		return venue.Order{}, &venue.APIError{Venue: p.Name(), Status: 404, Message: "order not found"}
	}
	return ord, nil
}

// CancelOrder cancels a resting simulated order; cancelling a terminal
// one reports not found, mirroring real venue behaviour.
func (p *Exchange) CancelOrder(_ context.Context, id, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ord, ok := p.orders[id]
	if !ok || ord.Status.Terminal() {
		return &venue.APIError{Venue: p.Name(), Status: 404, Message: "order not found"}
	}
	ord.Status = domain.OrderStatusCancelled
	p.orders[id] = ord
	return nil
}
