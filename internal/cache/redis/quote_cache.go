package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// defaultQuoteTTL bounds how long a cached top-of-book entry stays readable.
// Stale quotes are worse than no quotes for routing decisions.
const defaultQuoteTTL = 5 * time.Second

// QuoteCache implements domain.QuoteCache using Redis hashes.
// Each venue's latest top-of-book for a symbol is stored as a hash at key
// "quote:{venue}:{symbol}" with fields "bid", "ask", "bid_qty", "ask_qty" and
// "ts" (Unix nanosecond timestamp). Every write resets the key's TTL.
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache backed by the given Client. A ttl of 0
// selects the default.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = defaultQuoteTTL
	}
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(venue, symbol string) string {
	return "quote:" + venue + ":" + symbol
}

// SetQuote stores the latest top-of-book snapshot for q.Venue/q.Symbol and
// refreshes the entry's TTL.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.Quote) error {
	key := quoteKey(q.Venue, q.Symbol)
	fields := map[string]interface{}{
		"bid":     strconv.FormatFloat(q.Bid, 'f', -1, 64),
		"ask":     strconv.FormatFloat(q.Ask, 'f', -1, 64),
		"bid_qty": strconv.FormatFloat(q.BidQty, 'f', -1, 64),
		"ask_qty": strconv.FormatFloat(q.AskQty, 'f', -1, 64),
		"ts":      strconv.FormatInt(q.Timestamp.UnixNano(), 10),
	}

	pipe := qc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, qc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s %s: %w", q.Venue, q.Symbol, err)
	}
	return nil
}

// GetQuote retrieves the cached top-of-book for one venue and symbol.
// It returns domain.ErrNotFound when no live entry exists.
func (qc *QuoteCache) GetQuote(ctx context.Context, venue, symbol string) (domain.Quote, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(venue, symbol)).Result()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s %s: %w", venue, symbol, err)
	}
	if len(vals) == 0 {
		return domain.Quote{}, domain.ErrNotFound
	}
	return parseQuote(venue, symbol, vals)
}

// GetVenueQuotes retrieves the cached quotes for one symbol across the given
// venues using a pipeline. Venues with no live entry are silently omitted.
func (qc *QuoteCache) GetVenueQuotes(ctx context.Context, symbol string, venues []string) ([]domain.Quote, error) {
	if len(venues) == 0 {
		return nil, nil
	}

	pipe := qc.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(venues))
	for i, v := range venues {
		cmds[i] = pipe.HGetAll(ctx, quoteKey(v, symbol))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis: get venue quotes %s: %w", symbol, err)
	}

	quotes := make([]domain.Quote, 0, len(venues))
	for i, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		q, err := parseQuote(venues[i], symbol, vals)
		if err != nil {
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func parseQuote(venue, symbol string, vals map[string]string) (domain.Quote, error) {
	q := domain.Quote{Venue: venue, Symbol: symbol}

	var err error
	if q.Bid, err = strconv.ParseFloat(vals["bid"], 64); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse bid for %s %s: %w", venue, symbol, err)
	}
	if q.Ask, err = strconv.ParseFloat(vals["ask"], 64); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse ask for %s %s: %w", venue, symbol, err)
	}
	// Sizes and timestamp are best effort.
	q.BidQty, _ = strconv.ParseFloat(vals["bid_qty"], 64)
	q.AskQty, _ = strconv.ParseFloat(vals["ask_qty"], 64)
	if tsNano, perr := strconv.ParseInt(vals["ts"], 10, 64); perr == nil {
		q.Timestamp = time.Unix(0, tsNano)
	}
	return q, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
