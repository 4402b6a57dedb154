package feed

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// CacheFeeder runs a set of venue feeds and writes every update into the
// quote cache, where the price service and arb scanner read them without
// touching the venues' REST APIs.
type CacheFeeder struct {
	feeds  []Feed
	cache  domain.QuoteCache
	logger *slog.Logger
}

// NewCacheFeeder creates a CacheFeeder over the given feeds.
func NewCacheFeeder(feeds []Feed, cache domain.QuoteCache, logger *slog.Logger) *CacheFeeder {
	return &CacheFeeder{
		feeds:  feeds,
		cache:  cache,
		logger: logger.With(slog.String("component", "cache_feeder")),
	}
}

// Run starts every feed and blocks until the context ends or a feed returns
// a non-context error.
func (cf *CacheFeeder) Run(ctx context.Context) error {
	if len(cf.feeds) == 0 {
		cf.logger.Info("no feeds configured")
		<-ctx.Done()
		return ctx.Err()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range cf.feeds {
		g.Go(func() error {
			cf.logger.Info("feed starting", slog.String("venue", f.Venue()))
			return f.Run(ctx, cf.store)
		})
	}
	return g.Wait()
}

// store writes one update into the cache. Unusable quotes are dropped at the
// edge so readers never see crossed or one-sided books.
func (cf *CacheFeeder) store(ctx context.Context, q domain.Quote) {
	if !q.TwoSided() || q.Crossed() {
		return
	}
	if err := cf.cache.SetQuote(ctx, q); err != nil {
		cf.logger.Debug("cache write failed",
			slog.String("venue", q.Venue),
			slog.String("symbol", q.Symbol),
			slog.String("error", err.Error()))
	}
}
