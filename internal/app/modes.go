package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/sorbot/internal/aggregator"
	"github.com/alanyoungcy/sorbot/internal/arb"
	"github.com/alanyoungcy/sorbot/internal/engine"
	"github.com/alanyoungcy/sorbot/internal/feed"
	"github.com/alanyoungcy/sorbot/internal/server"
	"github.com/alanyoungcy/sorbot/internal/server/handler"
	"github.com/alanyoungcy/sorbot/internal/service"
	"github.com/alanyoungcy/sorbot/internal/symbol"
)

// serverShutdownTimeout bounds the graceful drain of in-flight requests.
const serverShutdownTimeout = 10 * time.Second

// services holds the domain services shared by the operating modes.
type services struct {
	price  *service.PriceService
	orders *service.OrderService
	arbs   *service.ArbService
	status *service.StatusService
}

// buildServices constructs the aggregator, execution engine, detector and
// the services on top of them.
func (a *App) buildServices(deps *Dependencies) *services {
	agg := aggregator.New(deps.Venues, a.cfg.Router.VenueTimeout.Duration, a.logger)

	eng := engine.New(deps.Venues, engine.Config{
		CrossBps:     a.cfg.Router.CrossBps,
		FillWait:     a.cfg.Router.FillWait.Duration,
		FOKFirst:     a.cfg.Router.FOKFirst,
		VenueTimeout: a.cfg.Router.VenueTimeout.Duration,
	}, a.logger)

	detector := arb.NewDetector(agg, a.cfg.Arbitrage.MinSpread, a.logger)

	symbols := make([]string, 0, len(a.cfg.Arbitrage.Symbols))
	for _, s := range a.cfg.Arbitrage.Symbols {
		symbols = append(symbols, symbol.Normalize(s))
	}

	return &services{
		price: service.NewPriceService(agg, deps.QuoteCache, a.logger),
		orders: service.NewOrderService(
			eng,
			deps.ExecutionStore,
			deps.RateLimiter,
			deps.Notifier,
			a.cfg.Router.OrdersPerMinute,
			a.logger,
		),
		arbs: service.NewArbService(
			detector,
			deps.ArbStore,
			deps.Notifier,
			symbols,
			a.cfg.Arbitrage.ScanInterval.Duration,
			a.logger,
		),
		status: service.NewStatusService(
			agg,
			deps.ExecutionStore,
			a.cfg.Mode,
			a.cfg.Router.DryRun,
			a.logger,
		),
	}
}

// buildHandlers assembles the HTTP handler set. The archive handler exists
// only when blob storage is wired.
func (a *App) buildHandlers(deps *Dependencies, svcs *services) server.Handlers {
	h := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Prices: handler.NewPriceHandler(svcs.price, a.cfg.Router.DepthBps, a.logger),
		Orders: handler.NewOrderHandler(svcs.orders, a.logger),
		Arb:    handler.NewArbHandler(svcs.arbs, a.logger),
		Status: handler.NewStatusHandler(svcs.status, a.logger),
	}
	if deps.BlobReader != nil {
		h.Archive = handler.NewArchiveHandler(deps.BlobReader, a.logger)
	}
	return h
}

// startServer registers the HTTP API on the errgroup and arranges a graceful
// shutdown when the group context is cancelled.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	srv := server.NewServer(server.Config{
		Port:           a.cfg.Server.Port,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		APIToken:       a.cfg.Server.APIToken,
		RateLimiter:    deps.RateLimiter,
		RequestsPerMin: a.cfg.Server.RequestsPerMinute,
	}, a.buildHandlers(deps, svcs), a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// buildFeeds assembles the streaming side: the Gate.io websocket where the
// venue supports it, a REST poller otherwise, all fanned into the quote
// cache. Returns nil when feeds are disabled.
func (a *App) buildFeeds(deps *Dependencies) *feed.CacheFeeder {
	if !a.cfg.Feed.Enabled || len(a.cfg.Feed.Symbols) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(a.cfg.Feed.Symbols))
	for _, s := range a.cfg.Feed.Symbols {
		symbols = append(symbols, symbol.Normalize(s))
	}

	var feeds []feed.Feed
	for _, ad := range deps.Venues {
		switch ad.ID() {
		case "gateio":
			feeds = append(feeds, feed.NewGateBookTickerFeed(
				a.cfg.Venues["gateio"].WsURL,
				symbols,
				a.cfg.Feed.ReconnectDelay.Duration,
				a.logger,
			))
		default:
			feeds = append(feeds, feed.NewRESTPollerFeed(ad, symbols, 0, a.logger))
		}
	}
	if len(feeds) == 0 {
		return nil
	}

	return feed.NewCacheFeeder(feeds, deps.QuoteCache, a.logger)
}

// startMonitoring registers the streaming feeds, the periodic arbitrage
// scanner and the cold-storage archiver on the errgroup.
func (a *App) startMonitoring(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	if feeder := a.buildFeeds(deps); feeder != nil {
		g.Go(func() error {
			return feeder.Run(ctx)
		})
	}

	if a.cfg.Arbitrage.Enabled {
		g.Go(func() error {
			return svcs.arbs.Run(ctx)
		})
	}

	if deps.Archiver != nil {
		g.Go(func() error {
			deps.Archiver.RunPeriodic(ctx, a.cfg.Archive.Interval.Duration, retention(a.cfg))
			return nil
		})
	}
}

// ServerMode runs the HTTP API alone: quotes, routing and history on demand,
// no background scanning.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	svcs := a.buildServices(deps)
	a.startServer(ctx, g, deps, svcs)

	return g.Wait()
}

// MonitorMode runs the streaming feeds and the arbitrage scanner without the
// HTTP API. No orders are placed unless dry_run routing is invoked elsewhere.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	svcs := a.buildServices(deps)
	a.startMonitoring(ctx, g, deps, svcs)

	return g.Wait()
}

// FullMode runs every subsystem: feeds, scanner, archiver and the HTTP API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	svcs := a.buildServices(deps)
	a.startMonitoring(ctx, g, deps, svcs)
	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, svcs)
	}

	return g.Wait()
}
