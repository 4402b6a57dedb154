package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/server/handler"
	"github.com/alanyoungcy/sorbot/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIToken    string // if empty, authentication is disabled

	// RateLimiter enables per-client request limiting when non-nil.
	RateLimiter    domain.RateLimiter
	RequestsPerMin int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Prices *handler.PriceHandler
	Orders *handler.OrderHandler
	Arb    *handler.ArbHandler
	Status *handler.StatusHandler

	// Archive is nil unless cold-storage archiving is configured.
	Archive *handler.ArchiveHandler
}

// Server is the headless HTTP API for the router.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered. The health and
// metrics endpoints are reachable without authentication so that probes and
// scrapers do not need credentials; everything else sits behind the token.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	api := http.NewServeMux()

	// Quote endpoints.
	api.HandleFunc("GET /api/prices/{symbol}", handlers.Prices.GetPrices)
	api.HandleFunc("GET /api/best/{symbol}", handlers.Prices.GetBest)
	api.HandleFunc("GET /api/depth/{symbol}", handlers.Prices.GetDepth)

	// Order endpoints.
	api.HandleFunc("GET /api/orders", handlers.Orders.ListOrders)
	api.HandleFunc("POST /api/orders", handlers.Orders.PlaceOrder)
	api.HandleFunc("GET /api/orders/{id}", handlers.Orders.GetOrder)

	// Arbitrage endpoints. "recent" must be registered for the literal
	// segment to win over the {symbol} wildcard.
	api.HandleFunc("GET /api/arbitrage/recent", handlers.Arb.ListRecent)
	api.HandleFunc("GET /api/arbitrage/{symbol}", handlers.Arb.ScanSymbol)

	// System status.
	api.HandleFunc("GET /api/system/status", handlers.Status.GetStatus)

	// Cold-storage browsing, present only when archiving is configured.
	if handlers.Archive != nil {
		api.HandleFunc("GET /api/archive", handlers.Archive.ListObjects)
		api.HandleFunc("GET /api/archive/{key...}", handlers.Archive.GetObject)
	}

	var apiHandler http.Handler = api
	apiHandler = middleware.Auth(cfg.APIToken)(apiHandler)
	if cfg.RateLimiter != nil && cfg.RequestsPerMin > 0 {
		apiHandler = middleware.RateLimit(cfg.RateLimiter, cfg.RequestsPerMin, time.Minute)(apiHandler)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/api/", apiHandler)

	var h http.Handler = mux
	h = middleware.Metrics()(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
