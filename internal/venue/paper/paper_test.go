package paper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/venue"
)

type mdStub struct {
	book domain.OrderBook
}

func (m *mdStub) Name() string { return "gateio" }

func (m *mdStub) FetchTicker(context.Context, string) (venue.Ticker, error) {
	return venue.Ticker{}, nil
}

func (m *mdStub) FetchOrderBook(context.Context, string, int) (domain.OrderBook, error) {
	return m.book, nil
}

func (m *mdStub) CreateLimitOrder(context.Context, string, domain.OrderSide, float64, float64, domain.TimeInForce) (venue.Order, error) {
	panic("paper must not place real orders")
}

func (m *mdStub) FetchOrder(context.Context, string, string) (venue.Order, error) {
	panic("paper must not fetch real orders")
}

func (m *mdStub) CancelOrder(context.Context, string, string) error {
	panic("paper must not cancel real orders")
}

func (m *mdStub) LoadMarkets(context.Context) (map[string]venue.Market, error) {
	return map[string]venue.Market{"BTC/USDT": {Symbol: "BTC/USDT", Active: true}}, nil
}

func testBook() domain.OrderBook {
	return domain.OrderBook{
		Bids: []domain.PriceLevel{{Price: 99, Quantity: 2}, {Price: 98, Quantity: 5}},
		Asks: []domain.PriceLevel{{Price: 100, Quantity: 1}, {Price: 101, Quantity: 1}},
	}
}

func TestFullFillAcrossLevels(t *testing.T) {
	p := New(&mdStub{book: testBook()})

	ord, err := p.CreateLimitOrder(context.Background(), "BTC/USDT", domain.OrderSideBuy, 2, 101, domain.TimeInForceIOC)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, ord.Status)
	assert.Equal(t, 2.0, ord.Filled)
	assert.InDelta(t, 100.5, ord.Average, 1e-9)
	assert.InDelta(t, 201.0, ord.Cost, 1e-9)
}

func TestFOKKilledWhenBookTooThin(t *testing.T) {
	p := New(&mdStub{book: testBook()})

	ord, err := p.CreateLimitOrder(context.Background(), "BTC/USDT", domain.OrderSideBuy, 5, 101, domain.TimeInForceFOK)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, ord.Status)
	assert.Zero(t, ord.Filled)
}

func TestIOCKeepsPartialFill(t *testing.T) {
	p := New(&mdStub{book: testBook()})

	ord, err := p.CreateLimitOrder(context.Background(), "BTC/USDT", domain.OrderSideBuy, 5, 100, domain.TimeInForceIOC)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, ord.Status)
	assert.Equal(t, 1.0, ord.Filled)
	assert.Equal(t, 100.0, ord.Average)
}

func TestPlainLimitRestsBelowBook(t *testing.T) {
	p := New(&mdStub{book: testBook()})
	ctx := context.Background()

	ord, err := p.CreateLimitOrder(ctx, "BTC/USDT", domain.OrderSideBuy, 1, 95, domain.TimeInForceNone)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusOpen, ord.Status)
	assert.Zero(t, ord.Filled)

	require.NoError(t, p.CancelOrder(ctx, ord.ID, "BTC/USDT"))
	got, err := p.FetchOrder(ctx, ord.ID, "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)

	// a second cancel reports not found, like a real venue
	assert.Error(t, p.CancelOrder(ctx, ord.ID, "BTC/USDT"))
}

func TestSellFillsAgainstBids(t *testing.T) {
	p := New(&mdStub{book: testBook()})

	ord, err := p.CreateLimitOrder(context.Background(), "BTC/USDT", domain.OrderSideSell, 2, 99, domain.TimeInForceIOC)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFilled, ord.Status)
	assert.Equal(t, 99.0, ord.Average)
}
