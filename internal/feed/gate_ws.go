package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/metrics"
	"github.com/alanyoungcy/sorbot/internal/symbol"
)

const (
	// handshakeTimeout bounds the websocket dial.
	handshakeTimeout = 15 * time.Second

	// readWait is the longest gap tolerated between messages before the
	// connection is treated as dead. Gate pushes book tickers far more often
	// than this on any liquid pair, and the ping loop covers quiet ones.
	readWait = 60 * time.Second

	// pingPeriod sends application-level pings at this interval.
	pingPeriod = 20 * time.Second

	// maxReconnectDelay caps the exponential backoff between reconnects.
	maxReconnectDelay = 60 * time.Second
)

// gateWSEnvelope is the outer frame of every Gate.io v4 websocket message.
type gateWSEnvelope struct {
	Time    int64           `json:"time"`
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Error   *gateWSError    `json:"error"`
	Result  json.RawMessage `json:"result"`
}

type gateWSError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// gateBookTicker is the spot.book_ticker update payload.
type gateBookTicker struct {
	TimeMs int64  `json:"t"`
	Pair   string `json:"s"`
	Bid    string `json:"b"`
	BidQty string `json:"B"`
	Ask    string `json:"a"`
	AskQty string `json:"A"`
}

// gateWSRequest is the subscribe/ping frame sent to the server.
type gateWSRequest struct {
	Time    int64    `json:"time"`
	Channel string   `json:"channel"`
	Event   string   `json:"event,omitempty"`
	Payload []string `json:"payload,omitempty"`
}

// GateBookTickerFeed streams spot.book_ticker updates from the Gate.io v4
// websocket for a fixed set of symbols. It reconnects with exponential
// backoff and resubscribes after each reconnect.
type GateBookTickerFeed struct {
	wsURL          string
	canonByPair    map[string]string // venue pair -> canonical symbol
	pairs          []string
	reconnectDelay time.Duration
	logger         *slog.Logger
}

// NewGateBookTickerFeed creates a feed for the given canonical symbols.
// Symbols that do not parse as a pair are skipped with a warning.
func NewGateBookTickerFeed(wsURL string, symbols []string, reconnectDelay time.Duration, logger *slog.Logger) *GateBookTickerFeed {
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	f := &GateBookTickerFeed{
		wsURL:          wsURL,
		canonByPair:    make(map[string]string, len(symbols)),
		reconnectDelay: reconnectDelay,
		logger:         logger.With(slog.String("component", "gate_feed")),
	}
	for _, s := range symbols {
		canonical := symbol.Normalize(s)
		base, quote, err := symbol.Split(canonical)
		if err != nil {
			f.logger.Warn("skipping unparseable symbol", slog.String("symbol", s))
			continue
		}
		// Gate pairs use an underscore separator.
		pair := base + "_" + quote
		f.canonByPair[pair] = canonical
		f.pairs = append(f.pairs, pair)
	}
	return f
}

// Venue returns the feed's venue id.
func (f *GateBookTickerFeed) Venue() string { return "gateio" }

// Run connects, subscribes, and dispatches updates to handler until the
// context ends. Disconnects trigger a reconnect with exponential backoff.
func (f *GateBookTickerFeed) Run(ctx context.Context, handler QuoteHandler) error {
	if len(f.pairs) == 0 {
		f.logger.Info("no symbols to stream, feed idle")
		<-ctx.Done()
		return ctx.Err()
	}

	delay := f.reconnectDelay
	for {
		err := f.runConnection(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		metrics.WSReconnects.WithLabelValues(f.Venue()).Inc()
		f.logger.Warn("feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (f *GateBookTickerFeed) runConnection(ctx context.Context, handler QuoteHandler) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: gate dial: %w", err)
	}
	defer conn.Close()

	// One subscribe frame per pair; Gate acks each individually.
	for _, pair := range f.pairs {
		req := gateWSRequest{
			Time:    time.Now().Unix(),
			Channel: "spot.book_ticker",
			Event:   "subscribe",
			Payload: []string{pair},
		}
		if err := conn.WriteJSON(req); err != nil {
			return fmt.Errorf("feed: gate subscribe %s: %w", pair, err)
		}
	}
	f.logger.Info("subscribed", slog.Int("pairs", len(f.pairs)))

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	// Application-level ping keeps quiet connections alive.
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ping := gateWSRequest{Time: time.Now().Unix(), Channel: "spot.ping"}
				if err := conn.WriteJSON(ping); err != nil {
					return
				}
			}
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: gate read: %w", err)
		}

		var env gateWSEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			f.logger.Debug("unparseable frame", slog.Int("len", len(data)))
			continue
		}

		if env.Error != nil {
			f.logger.Warn("server error frame",
				slog.Int("code", env.Error.Code),
				slog.String("message", env.Error.Message))
			continue
		}
		if env.Channel != "spot.book_ticker" || env.Event != "update" {
			continue
		}

		var tick gateBookTicker
		if err := json.Unmarshal(env.Result, &tick); err != nil {
			continue
		}
		canonical, ok := f.canonByPair[tick.Pair]
		if !ok {
			continue
		}

		metrics.WSMessages.WithLabelValues(f.Venue()).Inc()

		q := domain.Quote{
			Venue:     f.Venue(),
			Symbol:    canonical,
			Bid:       parseTickFloat(tick.Bid),
			Ask:       parseTickFloat(tick.Ask),
			BidQty:    parseTickFloat(tick.BidQty),
			AskQty:    parseTickFloat(tick.AskQty),
			Timestamp: time.UnixMilli(tick.TimeMs),
		}
		handler(ctx, q)
	}
}

func parseTickFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
