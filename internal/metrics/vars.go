package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QuoteFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sorbot_quote_fetches_total",
		Help: "Top-of-book fetches by venue and outcome",
	}, []string{"venue", "outcome"})

	QuoteLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sorbot_quote_fetch_seconds",
		Help:    "Time to fetch one venue top of book",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue"})

	OrdersRouted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sorbot_orders_routed_total",
		Help: "Routed executions by venue and outcome",
	}, []string{"venue", "outcome"})

	OrderSlippageBps = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sorbot_order_slippage_bps",
		Help:    "Signed slippage of fills against the guard price",
		Buckets: []float64{-50, -20, -10, -5, 0, 5, 10, 20, 50, 100, 250},
	})

	ExecutionSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sorbot_execution_seconds",
		Help:    "End-to-end routing time for one order intent",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	ArbOpportunities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sorbot_arb_opportunities_total",
		Help: "Detected cross-venue arbitrage opportunities by symbol",
	}, []string{"symbol"})

	ArbSpreadBps = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sorbot_arb_spread_bps",
		Help:    "Spread of detected arbitrage opportunities",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500},
	})

	WSMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sorbot_ws_messages_total",
		Help: "Websocket ticker messages by venue",
	}, []string{"venue"})

	WSReconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sorbot_ws_reconnects_total",
		Help: "Websocket reconnects by venue",
	}, []string{"venue"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sorbot_http_requests_total",
		Help: "API requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sorbot_http_request_seconds",
		Help:    "API request handling time",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	prometheus.MustRegister(
		QuoteFetches,
		QuoteLatency,
		OrdersRouted,
		OrderSlippageBps,
		ExecutionSeconds,
		ArbOpportunities,
		ArbSpreadBps,
		WSMessages,
		WSReconnects,
		HTTPRequests,
		HTTPDuration,
	)
}
