// Package feed streams venue top-of-book updates into the quote cache.
// Venues with a public JSON websocket stream get a streaming feed; the rest
// fall back to REST polling at a fixed interval.
package feed

import (
	"context"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// QuoteHandler receives each top-of-book update a feed produces.
type QuoteHandler func(ctx context.Context, q domain.Quote)

// Feed is one venue's continuous source of top-of-book updates. Run blocks
// until the context ends, reconnecting internally as needed.
type Feed interface {
	Venue() string
	Run(ctx context.Context, handler QuoteHandler) error
}
