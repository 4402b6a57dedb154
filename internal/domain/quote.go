package domain

import "time"

// Quote is a top-of-book snapshot from one venue, keyed by the canonical
// symbol (uppercase BASE/QUOTE form).
type Quote struct {
	Venue     string    `json:"venue"`
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	BidQty    float64   `json:"bid_qty"`
	AskQty    float64   `json:"ask_qty"`
	Timestamp time.Time `json:"timestamp"`
}

// TwoSided reports whether both sides carry a real price.
func (q Quote) TwoSided() bool { return q.Bid > 0 && q.Ask > 0 }

// Crossed reports a book where the ask sits below the bid. Such quotes
// are treated as unusable.
func (q Quote) Crossed() bool { return q.TwoSided() && q.Ask < q.Bid }

// Mid returns the midpoint price, or 0 for a one-sided book.
func (q Quote) Mid() float64 {
	if !q.TwoSided() {
		return 0
	}
	return (q.Bid + q.Ask) / 2
}

// SpreadBps returns the bid/ask spread in basis points relative to the bid.
func (q Quote) SpreadBps() float64 {
	if !q.TwoSided() {
		return 0
	}
	return (q.Ask - q.Bid) / q.Bid * 1e4
}

// PriceLevel is a single price+quantity entry in an orderbook side.
type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// OrderBook is a depth snapshot from one venue. Bids are sorted best
// (highest) first, asks best (lowest) first.
type OrderBook struct {
	Venue     string       `json:"venue"`
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

// BestBid returns the top bid, or a zero level for an empty side.
func (b OrderBook) BestBid() PriceLevel {
	if len(b.Bids) == 0 {
		return PriceLevel{}
	}
	return b.Bids[0]
}

// BestAsk returns the top ask, or a zero level for an empty side.
func (b OrderBook) BestAsk() PriceLevel {
	if len(b.Asks) == 0 {
		return PriceLevel{}
	}
	return b.Asks[0]
}

// BestPrices is the cross-venue best bid/offer for one symbol.
type BestPrices struct {
	Symbol       string    `json:"symbol"`
	BestBid      float64   `json:"best_bid"`
	BestBidVenue string    `json:"best_bid_venue"`
	BestAsk      float64   `json:"best_ask"`
	BestAskVenue string    `json:"best_ask_venue"`
	SpreadBps    float64   `json:"spread_bps"`
	Timestamp    time.Time `json:"timestamp"`
}

// DepthSnapshot reports how much quantity is executable on one venue
// within a basis-point budget of its own top of book. VWAP is the
// effective per-unit price including the venue taker fee.
type DepthSnapshot struct {
	Venue     string    `json:"venue"`
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	BpsBudget float64   `json:"bps_budget"`
	Quantity  float64   `json:"quantity"`
	VWAP      float64   `json:"vwap"`
}
