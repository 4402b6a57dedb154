package notify

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// Event types understood by the notifier filter. These match the values
// accepted in the notify.events config list.
const (
	EventArbDetected = "arb_detected"
	EventOrderFilled = "order_filled"
	EventOrderFailed = "order_failed"
	EventError       = "error"
)

// NotifyArbDetected formats and dispatches an arbitrage opportunity alert.
func (n *Notifier) NotifyArbDetected(ctx context.Context, opp domain.ArbOpportunity) error {
	title := fmt.Sprintf("Arbitrage: %s", opp.Symbol)
	message := fmt.Sprintf(
		"buy %s @ %.8g, sell %s @ %.8g\nspread %.1f bps, profit/unit %.8g, size %.8g",
		opp.BuyVenue, opp.BuyPrice,
		opp.SellVenue, opp.SellPrice,
		opp.SpreadBps, opp.ProfitPerUnit, opp.Size,
	)
	return n.Notify(ctx, EventArbDetected, title, message)
}

// NotifyExecution formats and dispatches an execution outcome alert. A
// successful result maps to order_filled, a failed one to order_failed.
func (n *Notifier) NotifyExecution(ctx context.Context, res domain.ExecutionResult) error {
	if res.Success {
		avg := 0.0
		if res.AveragePrice != nil {
			avg = *res.AveragePrice
		}
		title := fmt.Sprintf("Order filled: %s %s", res.Side, res.Symbol)
		message := fmt.Sprintf(
			"venue %s, filled %.8g/%.8g @ %.8g\nslippage %.1f bps",
			res.Venue, res.FilledQty, res.RequestedQty, avg, res.SlippageBps,
		)
		return n.Notify(ctx, EventOrderFilled, title, message)
	}

	title := fmt.Sprintf("Order failed: %s %s", res.Side, res.Symbol)
	message := fmt.Sprintf("%s: %s", res.ErrorKind, res.ErrorMessage)
	return n.Notify(ctx, EventOrderFailed, title, message)
}

// NotifyError dispatches an operational error alert.
func (n *Notifier) NotifyError(ctx context.Context, component string, err error) error {
	return n.Notify(ctx, EventError, "Error: "+component, err.Error())
}
