package engine

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

type placeOutcome struct {
	order venue.Order
	err   error
}

type scriptExchange struct {
	name      string
	ticker    venue.Ticker
	tickerErr error
	markets   map[string]venue.Market

	places      []placeOutcome
	fetched     venue.Order
	fetchErr    error
	cancelErr   error

	tickerCalls int
	placeTIFs   []domain.TimeInForce
	placePrice  float64
	cancelCalls int
}

func (s *scriptExchange) Name() string { return s.name }

func (s *scriptExchange) FetchTicker(context.Context, string) (venue.Ticker, error) {
	s.tickerCalls++
	return s.ticker, s.tickerErr
}

func (s *scriptExchange) FetchOrderBook(context.Context, string, int) (domain.OrderBook, error) {
	return domain.OrderBook{}, errors.New("no book")
}

func (s *scriptExchange) CreateLimitOrder(_ context.Context, _ string, _ domain.OrderSide, _ float64, price float64, tif domain.TimeInForce) (venue.Order, error) {
	s.placeTIFs = append(s.placeTIFs, tif)
	s.placePrice = price
	if len(s.places) == 0 {
		return venue.Order{}, errors.New("script exhausted")
	}
	out := s.places[0]
	s.places = s.places[1:]
	return out.order, out.err
}

func (s *scriptExchange) FetchOrder(context.Context, string, string) (venue.Order, error) {
	return s.fetched, s.fetchErr
}

func (s *scriptExchange) CancelOrder(context.Context, string, string) error {
	s.cancelCalls++
	return s.cancelErr
}

func (s *scriptExchange) LoadMarkets(context.Context) (map[string]venue.Market, error) {
	return s.markets, nil
}

func listed() map[string]venue.Market {
	return map[string]venue.Market{"BTC/USDT": {Symbol: "BTC/USDT", Active: true}}
}

func adapterFor(id string, ex venue.Exchange) *venue.Adapter {
	return venue.NewAdapter(ex, domain.VenueProfile{
		ID:         id,
		Convention: domain.ConventionSlash,
		Enabled:    true,
	}, slog.New(slog.DiscardHandler))
}

func testEngine(cfg Config, vs ...*venue.Adapter) *Engine {
	cfg.FillWait = time.Millisecond
	return New(vs, cfg, slog.New(slog.DiscardHandler))
}

func buyIntent() domain.OrderIntent {
	return domain.OrderIntent{Symbol: "BTC/USDT", Side: domain.OrderSideBuy, Quantity: 1}
}

func TestBuySlippagePositiveWhenWorseThanGuard(t *testing.T) {
	ex := &scriptExchange{
		name:    "gateio",
		ticker:  venue.Ticker{Bid: 99, Ask: 100},
		markets: listed(),
		places:  []placeOutcome{{order: venue.Order{ID: "o1", Status: domain.OrderStatusOpen}}},
		fetched: venue.Order{ID: "o1", Status: domain.OrderStatusFilled, Filled: 1, Average: 100.5},
	}
	e := testEngine(Config{FOKFirst: true}, adapterFor("gateio", ex))

	res := e.PlaceOrder(context.Background(), buyIntent())
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, "gateio", res.Venue)
	assert.Equal(t, 100.0, res.GuardPrice)
	require.NotNil(t, res.AveragePrice)
	assert.Equal(t, 100.5, *res.AveragePrice)
	assert.InDelta(t, 50.0, res.SlippageBps, 1e-9)
	assert.Equal(t, 1.0, res.FilledQty)
}

func TestSellSlippagePositiveWhenWorseThanGuard(t *testing.T) {
	ex := &scriptExchange{
		name:    "gateio",
		ticker:  venue.Ticker{Bid: 100, Ask: 101},
		markets: listed(),
		places:  []placeOutcome{{order: venue.Order{ID: "o1", Status: domain.OrderStatusOpen}}},
		fetched: venue.Order{ID: "o1", Status: domain.OrderStatusFilled, Filled: 1, Average: 99.5},
	}
	e := testEngine(Config{FOKFirst: true}, adapterFor("gateio", ex))

	res := e.PlaceOrder(context.Background(), domain.OrderIntent{
		Symbol: "BTC/USDT", Side: domain.OrderSideSell, Quantity: 1,
	})
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, 100.0, res.GuardPrice)
	assert.InDelta(t, 50.0, res.SlippageBps, 1e-9)
}

func TestVenueIterationShortCircuits(t *testing.T) {
	// venue 1 does not list the symbol, venue 2 fills, venue 3 untouched
	ex1 := &scriptExchange{name: "gateio", ticker: venue.Ticker{Bid: 99, Ask: 100}}
	ex2 := &scriptExchange{
		name:    "mexc",
		ticker:  venue.Ticker{Bid: 99, Ask: 100},
		markets: listed(),
		places:  []placeOutcome{{order: venue.Order{ID: "o2", Status: domain.OrderStatusOpen}}},
		fetched: venue.Order{ID: "o2", Status: domain.OrderStatusFilled, Filled: 1, Average: 100},
	}
	ex3 := &scriptExchange{name: "kucoin", ticker: venue.Ticker{Bid: 99, Ask: 100}, markets: listed()}

	e := testEngine(Config{FOKFirst: true},
		adapterFor("gateio", ex1), adapterFor("mexc", ex2), adapterFor("kucoin", ex3))

	res := e.PlaceOrder(context.Background(), buyIntent())
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, "mexc", res.Venue)
	assert.Zero(t, ex3.tickerCalls)
}

func TestTimeInForceChainAdvancesOnRejection(t *testing.T) {
	ex := &scriptExchange{
		name:    "gateio",
		ticker:  venue.Ticker{Bid: 99, Ask: 100},
		markets: listed(),
		places: []placeOutcome{
			{err: errors.New("order rejected by matching engine")},
			{err: errors.New("order rejected by matching engine")},
			{order: venue.Order{ID: "o3", Status: domain.OrderStatusOpen}},
		},
		fetched: venue.Order{ID: "o3", Status: domain.OrderStatusFilled, Filled: 1, Average: 100},
	}
	e := testEngine(Config{FOKFirst: true}, adapterFor("gateio", ex))

	res := e.PlaceOrder(context.Background(), buyIntent())
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t,
		[]domain.TimeInForce{domain.TimeInForceFOK, domain.TimeInForceIOC, domain.TimeInForceNone},
		ex.placeTIFs)
	require.Len(t, res.Attempts, 3)
	assert.NotEmpty(t, res.Attempts[0].Error)
	assert.Equal(t, "o3", res.Attempts[2].VenueOrderID)
}

func TestDefinitiveErrorAbortsChain(t *testing.T) {
	ex := &scriptExchange{
		name:    "gateio",
		ticker:  venue.Ticker{Bid: 99, Ask: 100},
		markets: listed(),
		places:  []placeOutcome{{err: errors.New("insufficient balance")}},
	}
	e := testEngine(Config{FOKFirst: true}, adapterFor("gateio", ex))

	res := e.PlaceOrder(context.Background(), domain.OrderIntent{
		Symbol: "BTC/USDT", Side: domain.OrderSideBuy, Quantity: 1, Venue: "gateio",
	})
	assert.False(t, res.Success)
	assert.Equal(t, domain.KindInsufficientBalance, res.ErrorKind)
	// one placement attempt, the chain never retried
	assert.Len(t, ex.placeTIFs, 1)
}

func TestResidualCancelIsIdempotent(t *testing.T) {
	ex := &scriptExchange{
		name:      "gateio",
		ticker:    venue.Ticker{Bid: 99, Ask: 100},
		markets:   listed(),
		places:    []placeOutcome{{order: venue.Order{ID: "o1", Status: domain.OrderStatusOpen}}},
		fetched:   venue.Order{ID: "o1", Status: domain.OrderStatusPartiallyFilled, Filled: 0.4, Average: 100},
		cancelErr: &venue.APIError{Venue: "gateio", Status: 404, Message: "order not found"},
	}
	e := testEngine(Config{FOKFirst: true}, adapterFor("gateio", ex))

	res := e.PlaceOrder(context.Background(), buyIntent())
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, 1, ex.cancelCalls)
	assert.Equal(t, 0.4, res.FilledQty)
	require.NotNil(t, res.AveragePrice)
	assert.Equal(t, 100.0, *res.AveragePrice)
}

func TestKilledOrderMovesToNextVenue(t *testing.T) {
	ex1 := &scriptExchange{
		name:    "gateio",
		ticker:  venue.Ticker{Bid: 99, Ask: 100},
		markets: listed(),
		places: []placeOutcome{
			// every chain step is accepted then killed with zero fill
			{order: venue.Order{ID: "k1", Status: domain.OrderStatusOpen}},
		},
		fetched: venue.Order{ID: "k1", Status: domain.OrderStatusCancelled, Filled: 0},
	}
	ex2 := &scriptExchange{
		name:    "mexc",
		ticker:  venue.Ticker{Bid: 99, Ask: 100},
		markets: listed(),
		places:  []placeOutcome{{order: venue.Order{ID: "o2", Status: domain.OrderStatusOpen}}},
		fetched: venue.Order{ID: "o2", Status: domain.OrderStatusFilled, Filled: 1, Average: 100},
	}
	e := testEngine(Config{FOKFirst: true}, adapterFor("gateio", ex1), adapterFor("mexc", ex2))

	res := e.PlaceOrder(context.Background(), buyIntent())
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, "mexc", res.Venue)
}

func TestAllVenuesFailed(t *testing.T) {
	down := errors.New("connection refused")
	ex1 := &scriptExchange{name: "gateio", tickerErr: down}
	ex2 := &scriptExchange{name: "mexc", tickerErr: down}
	e := testEngine(Config{FOKFirst: true}, adapterFor("gateio", ex1), adapterFor("mexc", ex2))

	res := e.PlaceOrder(context.Background(), buyIntent())
	assert.False(t, res.Success)
	assert.Equal(t, domain.KindAllVenuesFailed, res.ErrorKind)
	assert.NotEmpty(t, res.ErrorMessage)
}

func TestPinnedVenueOnly(t *testing.T) {
	ex1 := &scriptExchange{name: "gateio", ticker: venue.Ticker{Bid: 99, Ask: 100}, markets: listed()}
	ex2 := &scriptExchange{
		name:    "mexc",
		ticker:  venue.Ticker{Bid: 99, Ask: 100},
		markets: listed(),
		places:  []placeOutcome{{order: venue.Order{ID: "o2", Status: domain.OrderStatusOpen}}},
		fetched: venue.Order{ID: "o2", Status: domain.OrderStatusFilled, Filled: 1, Average: 100},
	}
	e := testEngine(Config{FOKFirst: true}, adapterFor("gateio", ex1), adapterFor("mexc", ex2))

	res := e.PlaceOrder(context.Background(), domain.OrderIntent{
		Symbol: "BTC/USDT", Side: domain.OrderSideBuy, Quantity: 1, Venue: "mexc",
	})
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, "mexc", res.Venue)
	assert.Zero(t, ex1.tickerCalls)
}

func TestCallerGuardPriceSkipsTopOfBook(t *testing.T) {
	ex := &scriptExchange{
		name:    "gateio",
		markets: listed(),
		places:  []placeOutcome{{order: venue.Order{ID: "o1", Status: domain.OrderStatusOpen}}},
		fetched: venue.Order{ID: "o1", Status: domain.OrderStatusFilled, Filled: 1, Average: 200},
	}
	e := testEngine(Config{FOKFirst: true}, adapterFor("gateio", ex))

	res := e.PlaceOrder(context.Background(), domain.OrderIntent{
		Symbol: "BTC/USDT", Side: domain.OrderSideBuy, Quantity: 1, GuardPrice: 200,
	})
	require.True(t, res.Success, res.ErrorMessage)
	assert.Zero(t, ex.tickerCalls)
	assert.Equal(t, 200.0, res.GuardPrice)
	// limit crosses the guard by the configured bps
	assert.InDelta(t, 200*1.0003, ex.placePrice, 1e-9)
}

func TestUnfilledRestingLimitIsNotAnError(t *testing.T) {
	ex := &scriptExchange{
		name:    "gateio",
		ticker:  venue.Ticker{Bid: 99, Ask: 100},
		markets: listed(),
		places:  []placeOutcome{{order: venue.Order{ID: "o1", Status: domain.OrderStatusOpen}}},
		fetched: venue.Order{ID: "o1", Status: domain.OrderStatusOpen, Filled: 0},
	}
	e := testEngine(Config{FOKFirst: true}, adapterFor("gateio", ex))

	res := e.PlaceOrder(context.Background(), buyIntent())
	require.True(t, res.Success, res.ErrorMessage)
	assert.Zero(t, res.FilledQty)
	assert.Nil(t, res.AveragePrice)
	assert.Zero(t, res.SlippageBps)
	assert.Equal(t, 1, ex.cancelCalls)
}

func TestInvalidIntentRejectedUpFront(t *testing.T) {
	e := testEngine(Config{})
	res := e.PlaceOrder(context.Background(), domain.OrderIntent{Symbol: "BTC/USDT", Side: "hold", Quantity: 1})
	assert.False(t, res.Success)
	assert.Equal(t, domain.KindOrderRejected, res.ErrorKind)
}
