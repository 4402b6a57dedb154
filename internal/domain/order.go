package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Valid reports whether the side is one of the two known values.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// TimeInForce is the order lifetime policy passed to a venue.
// TimeInForceNone omits the field and takes the venue default (GTC).
type TimeInForce string

const (
	TimeInForceFOK  TimeInForce = "FOK" // Fill-Or-Kill
	TimeInForceIOC  TimeInForce = "IOC" // Immediate-Or-Cancel
	TimeInForceNone TimeInForce = ""
)

// OrderStatus tracks the venue-side order lifecycle.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

// Resting reports whether the order may still be sitting on the book
// and therefore needs a cancel before the router can report back.
func (s OrderStatus) Resting() bool {
	return s == OrderStatusOpen || s == OrderStatusPartiallyFilled || s == OrderStatusPending
}

// Terminal reports whether the venue will never fill more of this order.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled ||
		s == OrderStatusRejected || s == OrderStatusExpired
}

// OrderIntent is a routing request. GuardPrice is optional; when zero the
// router derives it from the live top of book. Venue pins execution to a
// single venue when set.
type OrderIntent struct {
	Symbol     string    `json:"symbol"`
	Side       OrderSide `json:"side"`
	Quantity   float64   `json:"quantity"`
	GuardPrice float64   `json:"guard_price,omitempty"`
	Venue      string    `json:"venue,omitempty"`
}

// Validate checks the fields that can be rejected before touching any venue.
func (in OrderIntent) Validate() error {
	if in.Symbol == "" || !in.Side.Valid() || in.Quantity <= 0 {
		return ErrInvalidOrder
	}
	return nil
}

// VenueOrder is the router's handle on a live venue order plus the most
// recent status snapshot fetched for it.
type VenueOrder struct {
	Venue        string      `json:"venue"`
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	Status       OrderStatus `json:"status"`
	FilledQty    float64     `json:"filled_qty"`
	AveragePrice float64     `json:"average_price"`
	Cost         float64     `json:"cost"`
}

// ExecutionAttempt records one order submission inside an execution,
// one per venue/time-in-force combination tried.
type ExecutionAttempt struct {
	Venue        string      `json:"venue"`
	TimeInForce  TimeInForce `json:"time_in_force"`
	VenueOrderID string      `json:"venue_order_id,omitempty"`
	Status       OrderStatus `json:"status,omitempty"`
	FilledQty    float64     `json:"filled_qty"`
	Error        string      `json:"error,omitempty"`
}

// ExecutionResult is the full outcome of routing one OrderIntent.
// AveragePrice is nil when nothing filled. SlippageBps is signed:
// positive means the fill was worse than the guard price on either side.
type ExecutionResult struct {
	ID           string             `json:"id"`
	Symbol       string             `json:"symbol"`
	Side         OrderSide          `json:"side"`
	Success      bool               `json:"success"`
	Venue        string             `json:"venue,omitempty"`
	VenueOrderID string             `json:"venue_order_id,omitempty"`
	Status       OrderStatus        `json:"status,omitempty"`
	RequestedQty float64            `json:"requested_qty"`
	FilledQty    float64            `json:"filled_qty"`
	AveragePrice *float64           `json:"average_price"`
	Cost         float64            `json:"cost"`
	GuardPrice   float64            `json:"guard_price"`
	SlippageBps  float64            `json:"slippage_bps"`
	ErrorKind    ErrorKind          `json:"error_kind,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Attempts     []ExecutionAttempt `json:"attempts,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// FullyFilled reports whether the entire requested quantity executed.
func (r ExecutionResult) FullyFilled() bool {
	return r.Success && r.FilledQty >= r.RequestedQty
}

// SlippageBps computes signed slippage of an average fill price against
// the guard price, in basis points. Positive is adverse for both sides.
func SlippageBps(side OrderSide, guard, avg float64) float64 {
	if guard <= 0 || avg <= 0 {
		return 0
	}
	if side == OrderSideBuy {
		return (avg - guard) / guard * 1e4
	}
	return (guard - avg) / guard * 1e4
}
