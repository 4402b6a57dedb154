package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// TopOfBookSource is the slice of the venue facade the poller needs.
type TopOfBookSource interface {
	ID() string
	TopOfBook(ctx context.Context, canonical string) (domain.Quote, error)
}

// RESTPollerFeed produces top-of-book updates by polling a venue's REST API
// at a fixed interval. It covers venues without a public JSON websocket
// stream (MEXC's book-ticker stream is protobuf-only).
type RESTPollerFeed struct {
	source   TopOfBookSource
	symbols  []string
	interval time.Duration
	logger   *slog.Logger
}

// NewRESTPollerFeed creates a polling feed for the given canonical symbols.
// An interval of 0 selects one second.
func NewRESTPollerFeed(source TopOfBookSource, symbols []string, interval time.Duration, logger *slog.Logger) *RESTPollerFeed {
	if interval <= 0 {
		interval = time.Second
	}
	return &RESTPollerFeed{
		source:   source,
		symbols:  symbols,
		interval: interval,
		logger:   logger.With(slog.String("component", "rest_poller"), slog.String("venue", source.ID())),
	}
}

// Venue returns the polled venue's id.
func (f *RESTPollerFeed) Venue() string { return f.source.ID() }

// Run polls every symbol each interval until the context ends. Individual
// fetch failures are logged and skipped; the poll loop never gives up.
func (f *RESTPollerFeed) Run(ctx context.Context, handler QuoteHandler) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, sym := range f.symbols {
				q, err := f.source.TopOfBook(ctx, sym)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					f.logger.Debug("poll failed",
						slog.String("symbol", sym),
						slog.String("error", err.Error()))
					continue
				}
				handler(ctx, q)
			}
		}
	}
}
