package domain

import "time"

// ArbOpportunity is a momentary cross-venue dislocation: the bid on one
// venue exceeds the ask on another for the same symbol.
type ArbOpportunity struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	BuyVenue      string    `json:"buy_venue"`
	SellVenue     string    `json:"sell_venue"`
	BuyPrice      float64   `json:"buy_price"`
	SellPrice     float64   `json:"sell_price"`
	SpreadBps     float64   `json:"spread_bps"`
	ProfitPerUnit float64   `json:"profit_per_unit"`
	// Size is the executable quantity at top of book: the smaller of the
	// buy-side ask quantity and the sell-side bid quantity.
	Size float64 `json:"size"`
	DetectedAt    time.Time `json:"detected_at"`
}
