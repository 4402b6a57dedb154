package domain

// SymbolConvention names the symbol format a venue's API expects.
type SymbolConvention string

const (
	ConventionSlash       SymbolConvention = "slash"        // BTC/USDT
	ConventionDash        SymbolConvention = "dash"         // BTC-USDT
	ConventionConcat      SymbolConvention = "concat"       // btcusdt
	ConventionConcatUpper SymbolConvention = "concat_upper" // BTCUSDT
)

// VenueProfile carries the static per-venue facts the router needs:
// symbol convention, fee, order size bounds and precision.
type VenueProfile struct {
	ID              string
	Convention      SymbolConvention
	TakerFeeBps     float64
	MinOrderSize    float64
	MaxOrderSize    float64 // 0 means uncapped
	PricePrecision  int
	AmountPrecision int
	RESTBaseURL     string
	WSURL           string
	// RequiresPassphrase marks venues whose private API wants a third
	// credential next to the key/secret pair.
	RequiresPassphrase bool
	Enabled            bool
}

// TakerFee returns the fee as a fraction (10 bps -> 0.001).
func (p VenueProfile) TakerFee() float64 { return p.TakerFeeBps / 1e4 }
