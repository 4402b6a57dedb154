// Package depth computes executable quantity and VWAP within a
// basis-point budget of a book's own top of book.
package depth

import "github.com/alanyoungcy/sorbot/internal/domain"

// WithinBudget walks one book side best-first and accumulates levels up
// to and including the price cap derived from the top of book:
//
//	buy:  cap = bestAsk * (1 + bps/1e4), a level crosses when price > cap
//	sell: cap = bestBid * (1 - bps/1e4), a level crosses when price < cap
//
// A level priced exactly at the cap is consumed; a zero budget still
// admits the top-of-book level. The walk stops at the first crossing
// level and never consumes it partially. The returned VWAP is the
// effective per-unit price with the taker fee applied (fee is a
// fraction, 0.001 = 10 bps). Levels must be sorted best-first; an empty
// side yields (0, 0).
//
// The comparison is done in multiplied form (price*1e4 vs tob*(1e4±bps))
// so that a level sitting exactly on the cap is classified consistently
// regardless of float rounding in the division.
func WithinBudget(levels []domain.PriceLevel, side domain.OrderSide, bps, takerFee float64) (qty, vwap float64) {
	if len(levels) == 0 || bps < 0 {
		return 0, 0
	}
	tob := levels[0].Price
	if tob <= 0 {
		return 0, 0
	}

	var cost float64
	for _, lv := range levels {
		if side == domain.OrderSideBuy {
			if lv.Price*1e4 > tob*(1e4+bps) {
				break
			}
		} else {
			if lv.Price*1e4 < tob*(1e4-bps) {
				break
			}
		}
		qty += lv.Quantity
		cost += lv.Quantity * lv.Price
	}
	if qty <= 0 {
		return 0, 0
	}
	vwap = cost / qty
	if side == domain.OrderSideBuy {
		vwap *= 1 + takerFee
	} else {
		vwap *= 1 - takerFee
	}
	return qty, vwap
}
