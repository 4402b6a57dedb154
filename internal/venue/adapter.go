package venue

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/symbol"
)

const (
	defaultBookLimit = 25
	catalogueTTL     = 10 * time.Minute
)

// Adapter wraps one Exchange with the facade the router works against:
// it converts canonical symbols to the venue convention, validates them
// against a lazily loaded market catalogue, enforces order size bounds,
// rounds to venue precision, and classifies every failure into a
// domain.VenueError.
type Adapter struct {
	ex      Exchange
	profile domain.VenueProfile
	logger  *slog.Logger

	mu          sync.Mutex
	catalogue   map[string]Market
	catalogueAt time.Time
}

// NewAdapter builds the facade for one venue.
func NewAdapter(ex Exchange, profile domain.VenueProfile, logger *slog.Logger) *Adapter {
	return &Adapter{
		ex:      ex,
		profile: profile,
		logger:  logger.With("component", "venue", "venue", profile.ID),
	}
}

// ID returns the venue identifier.
func (a *Adapter) ID() string { return a.profile.ID }

// Profile returns the static venue profile.
func (a *Adapter) Profile() domain.VenueProfile { return a.profile }

// VenueSymbol renders a canonical symbol in this venue's convention.
func (a *Adapter) VenueSymbol(canonical string) (string, error) {
	vs, err := symbol.ForVenue(canonical, a.profile.Convention)
	if err != nil {
		return "", domain.NewVenueError(a.profile.ID, domain.KindSymbolNotFound, err)
	}
	return vs, nil
}

// TopOfBook returns the venue's current best bid/ask for a canonical
// symbol. When the ticker endpoint fails or comes back one-sided, the
// adapter falls back to the top level of the order book.
func (a *Adapter) TopOfBook(ctx context.Context, canonical string) (domain.Quote, error) {
	vs, err := a.VenueSymbol(canonical)
	if err != nil {
		return domain.Quote{}, err
	}

	tk, err := a.ex.FetchTicker(ctx, vs)
	if err != nil || tk.Bid <= 0 || tk.Ask <= 0 {
		if err != nil {
			a.logger.Debug("ticker fetch failed, falling back to book", "symbol", canonical, "error", err)
		}
		book, berr := a.ex.FetchOrderBook(ctx, vs, defaultBookLimit)
		if berr != nil {
			if err != nil {
				return domain.Quote{}, a.classify(err, domain.KindVenueUnavailable)
			}
			return domain.Quote{}, a.classify(berr, domain.KindVenueUnavailable)
		}
		bid, ask := book.BestBid(), book.BestAsk()
		tk = Ticker{Bid: bid.Price, BidQty: bid.Quantity, Ask: ask.Price, AskQty: ask.Quantity}
	}

	return domain.Quote{
		Venue:     a.profile.ID,
		Symbol:    canonical,
		Bid:       tk.Bid,
		Ask:       tk.Ask,
		BidQty:    tk.BidQty,
		AskQty:    tk.AskQty,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Depth fetches the order book for a canonical symbol. A limit of 0
// uses the default book depth.
func (a *Adapter) Depth(ctx context.Context, canonical string, limit int) (domain.OrderBook, error) {
	vs, err := a.VenueSymbol(canonical)
	if err != nil {
		return domain.OrderBook{}, err
	}
	if limit <= 0 {
		limit = defaultBookLimit
	}
	book, err := a.ex.FetchOrderBook(ctx, vs, limit)
	if err != nil {
		return domain.OrderBook{}, a.classify(err, domain.KindVenueUnavailable)
	}
	book.Venue = a.profile.ID
	book.Symbol = canonical
	if book.Timestamp.IsZero() {
		book.Timestamp = time.Now().UTC()
	}
	return book, nil
}

// PlaceLimitOrder validates, rounds and submits a limit order, returning
// the router's handle on the live venue order.
func (a *Adapter) PlaceLimitOrder(ctx context.Context, canonical string, side domain.OrderSide, qty, price float64, tif domain.TimeInForce) (domain.VenueOrder, error) {
	vs, err := a.VenueSymbol(canonical)
	if err != nil {
		return domain.VenueOrder{}, err
	}
	mkt, err := a.market(ctx, vs)
	if err != nil {
		return domain.VenueOrder{}, err
	}

	if err := a.checkSize(qty, mkt); err != nil {
		return domain.VenueOrder{}, err
	}
	qty = roundDown(qty, a.profile.AmountPrecision)
	price = roundDown(price, a.profile.PricePrecision)
	if qty <= 0 || price <= 0 {
		return domain.VenueOrder{}, domain.NewVenueError(a.profile.ID, domain.KindBelowMinimumSize,
			fmt.Errorf("venue: quantity or price rounds to zero"))
	}

	ord, err := a.ex.CreateLimitOrder(ctx, vs, side, qty, price, tif)
	if err != nil {
		return domain.VenueOrder{}, a.classify(err, domain.KindOrderRejected)
	}
	return domain.VenueOrder{
		Venue:        a.profile.ID,
		ID:           ord.ID,
		Symbol:       canonical,
		Status:       ord.Status,
		FilledQty:    ord.Filled,
		AveragePrice: ord.Average,
		Cost:         ord.Cost,
	}, nil
}

// OrderStatus refreshes the status snapshot for a live order handle.
func (a *Adapter) OrderStatus(ctx context.Context, vo domain.VenueOrder) (domain.VenueOrder, error) {
	vs, err := a.VenueSymbol(vo.Symbol)
	if err != nil {
		return vo, err
	}
	ord, err := a.ex.FetchOrder(ctx, vo.ID, vs)
	if err != nil {
		return vo, a.classify(err, domain.KindVenueUnavailable)
	}
	vo.Status = ord.Status
	vo.FilledQty = ord.Filled
	vo.AveragePrice = ord.Average
	vo.Cost = ord.Cost
	return vo, nil
}

// CancelOrder cancels a live order. Cancelling an order the venue
// already closed is not an error.
func (a *Adapter) CancelOrder(ctx context.Context, vo domain.VenueOrder) error {
	vs, err := a.VenueSymbol(vo.Symbol)
	if err != nil {
		return err
	}
	if err := a.ex.CancelOrder(ctx, vo.ID, vs); err != nil {
		if isAlreadyClosed(err) {
			return nil
		}
		return a.classify(err, domain.KindVenueUnavailable)
	}
	return nil
}

// Ping checks venue reachability with a catalogue fetch.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.markets(ctx, false)
	return err
}

// market resolves one venue-native symbol against the catalogue,
// refreshing it once on a miss before giving up.
func (a *Adapter) market(ctx context.Context, vs string) (Market, error) {
	cat, err := a.markets(ctx, false)
	if err != nil {
		return Market{}, err
	}
	if mkt, ok := cat[vs]; ok && mkt.Active {
		return mkt, nil
	}
	cat, err = a.markets(ctx, true)
	if err != nil {
		return Market{}, err
	}
	if mkt, ok := cat[vs]; ok && mkt.Active {
		return mkt, nil
	}
	return Market{}, domain.NewVenueError(a.profile.ID, domain.KindSymbolNotFound,
		fmt.Errorf("venue: %s not in catalogue", vs))
}

func (a *Adapter) markets(ctx context.Context, force bool) (map[string]Market, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !force && a.catalogue != nil && time.Since(a.catalogueAt) < catalogueTTL {
		return a.catalogue, nil
	}
	cat, err := a.ex.LoadMarkets(ctx)
	if err != nil {
		// serve a stale catalogue rather than failing hard
		if a.catalogue != nil {
			return a.catalogue, nil
		}
		return nil, a.classify(err, domain.KindVenueUnavailable)
	}
	a.catalogue = cat
	a.catalogueAt = time.Now()
	return cat, nil
}

func (a *Adapter) checkSize(qty float64, mkt Market) error {
	minSize := a.profile.MinOrderSize
	if mkt.MinAmount > 0 {
		minSize = mkt.MinAmount
	}
	maxSize := a.profile.MaxOrderSize
	if mkt.MaxAmount > 0 {
		maxSize = mkt.MaxAmount
	}
	if minSize > 0 && qty < minSize {
		return domain.NewVenueError(a.profile.ID, domain.KindBelowMinimumSize,
			fmt.Errorf("venue: quantity %g below minimum %g", qty, minSize))
	}
	if maxSize > 0 && qty > maxSize {
		return domain.NewVenueError(a.profile.ID, domain.KindAboveMaximumSize,
			fmt.Errorf("venue: quantity %g above maximum %g", qty, maxSize))
	}
	return nil
}

// TakerFee returns the effective taker fee fraction, preferring the
// catalogue value when the venue reports one.
func (a *Adapter) TakerFee(ctx context.Context, canonical string) float64 {
	vs, err := a.VenueSymbol(canonical)
	if err != nil {
		return a.profile.TakerFee()
	}
	if cat, err := a.markets(ctx, false); err == nil {
		if mkt, ok := cat[vs]; ok && mkt.TakerFee > 0 {
			return mkt.TakerFee
		}
	}
	return a.profile.TakerFee()
}

// roundDown truncates to the venue's decimal precision. A precision of
// zero or less means the venue did not declare one, so the value passes
// through untouched.
func roundDown(x float64, decimals int) float64 {
	if decimals <= 0 {
		return x
	}
	p := math.Pow10(decimals)
	return math.Floor(x*p) / p
}
