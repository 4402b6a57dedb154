package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/venue"
)

type stubExchange struct {
	name      string
	ticker    venue.Ticker
	tickerErr error
	book      domain.OrderBook
	bookErr   error
}

func (s *stubExchange) Name() string { return s.name }

func (s *stubExchange) FetchTicker(context.Context, string) (venue.Ticker, error) {
	return s.ticker, s.tickerErr
}

func (s *stubExchange) FetchOrderBook(context.Context, string, int) (domain.OrderBook, error) {
	return s.book, s.bookErr
}

func (s *stubExchange) CreateLimitOrder(context.Context, string, domain.OrderSide, float64, float64, domain.TimeInForce) (venue.Order, error) {
	return venue.Order{}, errors.New("not implemented")
}

func (s *stubExchange) FetchOrder(context.Context, string, string) (venue.Order, error) {
	return venue.Order{}, errors.New("not implemented")
}

func (s *stubExchange) CancelOrder(context.Context, string, string) error {
	return errors.New("not implemented")
}

func (s *stubExchange) LoadMarkets(context.Context) (map[string]venue.Market, error) {
	return map[string]venue.Market{}, nil
}

func adapterFor(id string, ex venue.Exchange) *venue.Adapter {
	return venue.NewAdapter(ex, domain.VenueProfile{
		ID:         id,
		Convention: domain.ConventionSlash,
		Enabled:    true,
	}, slog.New(slog.DiscardHandler))
}

func newTestAggregator(stubs map[string]*stubExchange, order ...string) *Aggregator {
	venues := make([]*venue.Adapter, 0, len(order))
	for _, id := range order {
		venues = append(venues, adapterFor(id, stubs[id]))
	}
	return New(venues, time.Second, slog.New(slog.DiscardHandler))
}

func TestBestPricesPartialVenueFailure(t *testing.T) {
	g := newTestAggregator(map[string]*stubExchange{
		"gateio": {name: "gateio", ticker: venue.Ticker{Bid: 100, Ask: 101}},
		"mexc":   {name: "mexc", ticker: venue.Ticker{Bid: 100.5, Ask: 101.5}},
		"kucoin": {name: "kucoin", tickerErr: errors.New("down"), bookErr: errors.New("down")},
	}, "gateio", "mexc", "kucoin")

	best, err := g.BestPrices(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 100.5, best.BestBid)
	assert.Equal(t, "mexc", best.BestBidVenue)
	assert.Equal(t, 101.0, best.BestAsk)
	assert.Equal(t, "gateio", best.BestAskVenue)
	assert.InDelta(t, (101.0-100.5)/100.5*1e4, best.SpreadBps, 1e-9)
}

func TestBestPricesTieGoesToFirstVenue(t *testing.T) {
	g := newTestAggregator(map[string]*stubExchange{
		"gateio": {name: "gateio", ticker: venue.Ticker{Bid: 100, Ask: 101}},
		"mexc":   {name: "mexc", ticker: venue.Ticker{Bid: 100, Ask: 101}},
	}, "gateio", "mexc")

	best, err := g.BestPrices(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "gateio", best.BestBidVenue)
	assert.Equal(t, "gateio", best.BestAskVenue)
}

func TestAllPricesDropsCrossedAndOneSided(t *testing.T) {
	g := newTestAggregator(map[string]*stubExchange{
		"gateio": {name: "gateio", ticker: venue.Ticker{Bid: 102, Ask: 101}}, // crossed
		"mexc":   {name: "mexc", ticker: venue.Ticker{Bid: 0, Ask: 101}, bookErr: errors.New("no book")},
		"kucoin": {name: "kucoin", ticker: venue.Ticker{Bid: 100, Ask: 101}},
	}, "gateio", "mexc", "kucoin")

	quotes := g.AllPrices(context.Background(), "BTC/USDT")
	require.Len(t, quotes, 1)
	assert.Equal(t, "kucoin", quotes[0].Venue)
}

func TestBestPricesNoQuotes(t *testing.T) {
	g := newTestAggregator(map[string]*stubExchange{
		"gateio": {name: "gateio", tickerErr: errors.New("down"), bookErr: errors.New("down")},
	}, "gateio")

	_, err := g.BestPrices(context.Background(), "BTC/USDT")
	assert.ErrorIs(t, err, domain.ErrNoQuotes)
}

func TestDepthWithinBudget(t *testing.T) {
	book := domain.OrderBook{
		Bids: []domain.PriceLevel{{Price: 99, Quantity: 5}},
		Asks: []domain.PriceLevel{
			{Price: 100, Quantity: 1},
			{Price: 101, Quantity: 1},
			{Price: 105, Quantity: 1},
		},
	}
	g := newTestAggregator(map[string]*stubExchange{
		"gateio": {name: "gateio", book: book},
	}, "gateio")

	// cap = 100*(1+0.05) = 105: the cap-touching 105 level is consumed
	snaps := g.DepthWithinBudget(context.Background(), "BTC/USDT", domain.OrderSideBuy, 500)
	require.Len(t, snaps, 1)
	assert.Equal(t, 3.0, snaps[0].Quantity)
	assert.InDelta(t, 102.0, snaps[0].VWAP, 1e-9)
	assert.Equal(t, domain.OrderSideBuy, snaps[0].Side)

	snaps = g.DepthWithinBudget(context.Background(), "BTC/USDT", domain.OrderSideBuy, 499)
	require.Len(t, snaps, 1)
	assert.Equal(t, 2.0, snaps[0].Quantity)
	assert.Equal(t, 100.5, snaps[0].VWAP)
}
