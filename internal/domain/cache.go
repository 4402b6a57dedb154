package domain

import (
	"context"
	"time"
)

// QuoteCache holds the latest per-venue top-of-book snapshots. Entries
// are ephemeral and carry a short TTL; a miss is reported as ErrNotFound.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote) error
	GetQuote(ctx context.Context, venue, symbol string) (Quote, error)
	GetVenueQuotes(ctx context.Context, symbol string, venues []string) ([]Quote, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed mutual exclusion. Acquire returns an
// unlock function on success, or ErrLockHeld when another party holds the
// lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
