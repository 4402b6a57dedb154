package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/venue"
)

// fakeMarketData is a market-data-only Exchange; any trading call fails so
// tests route trading through the paper simulator.
type fakeMarketData struct {
	mu          sync.Mutex
	name        string
	ticker      venue.Ticker
	tickerErr   error
	marketsErr  error
	tickerCalls int
}

func (f *fakeMarketData) Name() string { return f.name }

func (f *fakeMarketData) FetchTicker(context.Context, string) (venue.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickerCalls++
	return f.ticker, f.tickerErr
}

func (f *fakeMarketData) FetchOrderBook(context.Context, string, int) (domain.OrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tickerErr != nil {
		return domain.OrderBook{}, f.tickerErr
	}
	return domain.OrderBook{
		Bids: []domain.PriceLevel{{Price: f.ticker.Bid, Quantity: f.ticker.BidQty}},
		Asks: []domain.PriceLevel{{Price: f.ticker.Ask, Quantity: f.ticker.AskQty}},
	}, nil
}

func (f *fakeMarketData) CreateLimitOrder(context.Context, string, domain.OrderSide, float64, float64, domain.TimeInForce) (venue.Order, error) {
	return venue.Order{}, errors.New("market data only")
}

func (f *fakeMarketData) FetchOrder(context.Context, string, string) (venue.Order, error) {
	return venue.Order{}, errors.New("market data only")
}

func (f *fakeMarketData) CancelOrder(context.Context, string, string) error {
	return errors.New("market data only")
}

func (f *fakeMarketData) LoadMarkets(context.Context) (map[string]venue.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.marketsErr != nil {
		return nil, f.marketsErr
	}
	return map[string]venue.Market{
		"BTC/USDT": {Symbol: "BTC/USDT", Active: true},
	}, nil
}

func (f *fakeMarketData) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickerCalls
}

func testAdapter(id string, ex venue.Exchange) *venue.Adapter {
	return venue.NewAdapter(ex, domain.VenueProfile{
		ID:         id,
		Convention: domain.ConventionSlash,
		Enabled:    true,
	}, slog.Default())
}

// memExecutionStore is an in-memory domain.ExecutionStore.
type memExecutionStore struct {
	mu   sync.Mutex
	rows []domain.ExecutionResult
}

func (m *memExecutionStore) Create(_ context.Context, res domain.ExecutionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, res)
	return nil
}

func (m *memExecutionStore) GetByID(_ context.Context, id string) (domain.ExecutionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.ExecutionResult{}, domain.ErrNotFound
}

func (m *memExecutionStore) List(_ context.Context, opts domain.ListOpts) ([]domain.ExecutionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.ExecutionResult(nil), m.rows...)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memExecutionStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

func (m *memExecutionStore) ListBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.ExecutionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ExecutionResult
	for _, r := range m.rows {
		if r.CreatedAt.Before(cutoff) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memExecutionStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []domain.ExecutionResult
	var n int64
	for _, r := range m.rows {
		if r.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

// stubLimiter scripts rate limiter answers.
type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

// stubQuoteCache is an in-memory domain.QuoteCache.
type stubQuoteCache struct {
	mu     sync.Mutex
	quotes map[string]domain.Quote // venue -> quote
	sets   int
}

func newStubQuoteCache() *stubQuoteCache {
	return &stubQuoteCache{quotes: map[string]domain.Quote{}}
}

func (c *stubQuoteCache) SetQuote(_ context.Context, q domain.Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[q.Venue] = q
	c.sets++
	return nil
}

func (c *stubQuoteCache) GetQuote(_ context.Context, venueID, _ string) (domain.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quotes[venueID]
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	return q, nil
}

func (c *stubQuoteCache) GetVenueQuotes(_ context.Context, _ string, venues []string) ([]domain.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Quote
	for _, v := range venues {
		if q, ok := c.quotes[v]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (c *stubQuoteCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}
