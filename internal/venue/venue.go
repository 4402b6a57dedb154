// Package venue fronts heterogeneous exchange clients with a uniform
// facade: canonical symbols in, classified errors out.
package venue

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// Ticker is a raw top-of-book payload as a venue reports it.
type Ticker struct {
	Bid    float64
	Ask    float64
	BidQty float64
	AskQty float64
}

// Market is one tradable pair from a venue catalogue, keyed by the
// venue-native symbol.
type Market struct {
	Symbol    string
	Active    bool
	MinAmount float64
	MaxAmount float64 // 0 means uncapped
	TakerFee  float64 // fraction; 0 means unknown, use the profile fee
}

// Order is a raw venue order snapshot.
type Order struct {
	ID      string
	Status  domain.OrderStatus
	Filled  float64
	Average float64
	Cost    float64
}

// Exchange is the raw capability a concrete venue client implements.
// Symbols are venue-native; errors are whatever the client produces,
// the Adapter classifies them.
type Exchange interface {
	Name() string
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)
	FetchOrderBook(ctx context.Context, symbol string, limit int) (domain.OrderBook, error)
	CreateLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, amount, price float64, tif domain.TimeInForce) (Order, error)
	FetchOrder(ctx context.Context, id, symbol string) (Order, error)
	CancelOrder(ctx context.Context, id, symbol string) error
	LoadMarkets(ctx context.Context) (map[string]Market, error)
}

// APIError is a structured HTTP-level failure from a venue API.
type APIError struct {
	Venue   string
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s (%s)", e.Venue, e.Status, e.Message, e.Code)
}
