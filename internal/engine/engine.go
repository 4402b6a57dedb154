// Package engine routes order intents: it derives a guard price from the
// live top of book, submits a marketable limit through a time-in-force
// fallback chain, waits, reconciles the fill and reports signed slippage.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/metrics"
	"github.com/alanyoungcy/sorbot/internal/venue"
)

const (
	defaultCrossBps = 3.0
	defaultFillWait = 350 * time.Millisecond
)

// Config tunes the routing state machine.
type Config struct {
	// CrossBps is how far the limit price crosses the guard price to
	// stay marketable. Zero picks the default of 3 bps.
	CrossBps float64
	// FillWait is how long to let the matching engine work before the
	// status fetch. Zero picks the default of 350ms.
	FillWait time.Duration
	// FOKFirst prepends Fill-Or-Kill to the IOC and plain-limit chain.
	FOKFirst bool
	// VenueTimeout caps the wall clock spent on a single venue,
	// submission through cancel. Zero means uncapped.
	VenueTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.CrossBps <= 0 {
		c.CrossBps = defaultCrossBps
	}
	if c.FillWait <= 0 {
		c.FillWait = defaultFillWait
	}
	return c
}

// Engine executes order intents against an ordered venue list,
// first-success-wins.
type Engine struct {
	venues []*venue.Adapter
	byID   map[string]*venue.Adapter
	cfg    Config
	logger *slog.Logger
}

// New builds an engine over the given adapters in routing priority order.
func New(venues []*venue.Adapter, cfg Config, logger *slog.Logger) *Engine {
	byID := make(map[string]*venue.Adapter, len(venues))
	for _, a := range venues {
		byID[a.ID()] = a
	}
	return &Engine{
		venues: venues,
		byID:   byID,
		cfg:    cfg.withDefaults(),
		logger: logger.With("component", "engine"),
	}
}

// PlaceOrder routes one intent. It never returns a Go error: every
// failure mode ends in a structured result with success=false and a
// classified error kind.
func (e *Engine) PlaceOrder(ctx context.Context, intent domain.OrderIntent) domain.ExecutionResult {
	start := time.Now()
	res := domain.ExecutionResult{
		ID:           uuid.NewString(),
		Symbol:       intent.Symbol,
		Side:         intent.Side,
		RequestedQty: intent.Quantity,
		GuardPrice:   intent.GuardPrice,
		CreatedAt:    start.UTC(),
	}
	defer func() {
		metrics.ExecutionSeconds.Observe(time.Since(start).Seconds())
	}()

	if err := intent.Validate(); err != nil {
		res.ErrorKind = domain.KindOrderRejected
		res.ErrorMessage = err.Error()
		return res
	}

	targets := e.venues
	pinned := intent.Venue != ""
	if pinned {
		a, ok := e.byID[intent.Venue]
		if !ok {
			res.ErrorKind = domain.KindVenueUnavailable
			res.ErrorMessage = fmt.Sprintf("engine: unknown venue %q", intent.Venue)
			return res
		}
		targets = []*venue.Adapter{a}
	}

	var lastErr error
	for _, a := range targets {
		vres, err := e.executeOnVenue(ctx, a, intent, &res)
		if err == nil {
			metrics.OrdersRouted.WithLabelValues(a.ID(), "ok").Inc()
			metrics.OrderSlippageBps.Observe(vres.SlippageBps)
			e.logger.Info("order routed",
				"order_id", res.ID, "venue", a.ID(), "symbol", intent.Symbol,
				"side", string(intent.Side), "requested_qty", intent.Quantity,
				"filled_qty", vres.FilledQty, "slippage_bps", vres.SlippageBps)
			return vres
		}
		lastErr = err
		metrics.OrdersRouted.WithLabelValues(a.ID(), "failed").Inc()
		e.logger.Warn("venue execution failed",
			"order_id", res.ID, "venue", a.ID(), "symbol", intent.Symbol,
			"kind", string(domain.KindOf(err)), "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	if pinned {
		res.ErrorKind = domain.KindOf(lastErr)
	} else {
		res.ErrorKind = domain.KindAllVenuesFailed
	}
	if lastErr != nil {
		res.ErrorMessage = lastErr.Error()
	} else {
		res.ErrorMessage = "no venues configured"
	}
	return res
}

// executeOnVenue runs the full state machine on one venue. A returned
// error means the venue is definitively unusable for this intent and
// iteration should move on; res is only treated as the outcome when the
// error is nil.
func (e *Engine) executeOnVenue(ctx context.Context, a *venue.Adapter, intent domain.OrderIntent, res *domain.ExecutionResult) (domain.ExecutionResult, error) {
	if e.cfg.VenueTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.VenueTimeout)
		defer cancel()
	}

	guard, err := e.guardPrice(ctx, a, intent)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	limit := guard * (1 + e.cfg.CrossBps/1e4)
	if intent.Side == domain.OrderSideSell {
		limit = guard * (1 - e.cfg.CrossBps/1e4)
	}

	vo, err := e.submit(ctx, a, intent, limit, res)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	// let the matching engine work before asking for status
	select {
	case <-time.After(e.cfg.FillWait):
	case <-ctx.Done():
	}

	st, serr := a.OrderStatus(ctx, vo)
	if serr != nil {
		// the placement snapshot is the best truth we have
		e.logger.Warn("order status fetch failed, using placement snapshot",
			"venue", a.ID(), "venue_order_id", vo.ID, "error", serr)
		st = vo
	}

	filled := st.FilledQty
	avg := st.AveragePrice
	if avg <= 0 && st.Cost > 0 && filled > 0 {
		avg = st.Cost / filled
	}

	if st.Status.Resting() {
		if cerr := a.CancelOrder(ctx, st); cerr != nil {
			e.logger.Warn("residual cancel failed",
				"venue", a.ID(), "venue_order_id", st.ID, "error", cerr)
		}
	}

	if filled <= 0 && st.Status.Terminal() && st.Status != domain.OrderStatusFilled {
		return domain.ExecutionResult{}, domain.NewVenueError(a.ID(), domain.KindOrderRejected,
			fmt.Errorf("engine: order %s on %s ended %s with zero fill", st.ID, a.ID(), st.Status))
	}

	out := *res
	out.Success = true
	out.Venue = a.ID()
	out.VenueOrderID = st.ID
	out.Status = st.Status
	out.FilledQty = filled
	out.GuardPrice = guard
	if filled > 0 && avg > 0 {
		out.AveragePrice = &avg
		out.Cost = avg * filled
		out.SlippageBps = domain.SlippageBps(intent.Side, guard, avg)
	}
	return out, nil
}

// guardPrice resolves the protective reference price: the caller's value
// when supplied, otherwise the venue's current top of book for the side.
func (e *Engine) guardPrice(ctx context.Context, a *venue.Adapter, intent domain.OrderIntent) (float64, error) {
	if intent.GuardPrice > 0 {
		return intent.GuardPrice, nil
	}
	q, err := a.TopOfBook(ctx, intent.Symbol)
	if err != nil {
		return 0, domain.NewVenueError(a.ID(), domain.KindNoGuardPrice, err)
	}
	guard := q.Ask
	if intent.Side == domain.OrderSideSell {
		guard = q.Bid
	}
	if guard <= 0 {
		return 0, domain.NewVenueError(a.ID(), domain.KindNoGuardPrice,
			fmt.Errorf("engine: empty %s side on %s", intent.Side, a.ID()))
	}
	return guard, nil
}

// submit walks the time-in-force fallback chain. The chain only advances
// past a policy on an exchange-level rejection; definitive venue errors
// (symbol, size, balance, connectivity) abort immediately, and the first
// accepted order ends the chain for good.
func (e *Engine) submit(ctx context.Context, a *venue.Adapter, intent domain.OrderIntent, limit float64, res *domain.ExecutionResult) (domain.VenueOrder, error) {
	chain := []domain.TimeInForce{domain.TimeInForceIOC, domain.TimeInForceNone}
	if e.cfg.FOKFirst {
		chain = append([]domain.TimeInForce{domain.TimeInForceFOK}, chain...)
	}

	var lastErr error
	for _, tif := range chain {
		vo, err := a.PlaceLimitOrder(ctx, intent.Symbol, intent.Side, intent.Quantity, limit, tif)
		attempt := domain.ExecutionAttempt{Venue: a.ID(), TimeInForce: tif}
		if err != nil {
			attempt.Error = err.Error()
			res.Attempts = append(res.Attempts, attempt)
			switch domain.KindOf(err) {
			case domain.KindOrderRejected, domain.KindUnknown:
				lastErr = err
				continue
			default:
				return domain.VenueOrder{}, err
			}
		}
		attempt.VenueOrderID = vo.ID
		attempt.Status = vo.Status
		attempt.FilledQty = vo.FilledQty
		res.Attempts = append(res.Attempts, attempt)
		return vo, nil
	}
	return domain.VenueOrder{}, lastErr
}
