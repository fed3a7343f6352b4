// Package metrics provides Prometheus metrics for the TCG Portfolio backend.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tcg_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)

	// Holding Metrics
	HoldingMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_holding_mutations_total",
			Help: "Holding writes by operation and outcome",
		},
		[]string{"operation", "result"}, // operation: "create", "update", "delete"; result: "created", "merged", "ok", "not_found", "error"
	)

	// Portfolio Metrics
	PortfolioHoldings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_portfolio_holdings",
			Help: "Number of holdings in the portfolio",
		},
	)

	PortfolioCardsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_portfolio_cards_total",
			Help: "Total card quantity across holdings",
		},
	)

	PortfolioInvestedUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_portfolio_invested_usd",
			Help: "Total cost basis of the portfolio in USD",
		},
	)

	PortfolioValueUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_portfolio_value_usd",
			Help: "Latest estimated portfolio value in USD",
		},
	)

	// Snapshot / Seed Metrics
	ValueSnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_value_snapshots_total",
			Help: "Portfolio value snapshots recorded",
		},
		[]string{"result"}, // "success" or "failed"
	)

	SeedRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_seed_runs_total",
			Help: "Seed routine executions",
		},
		[]string{"result"}, // "success" or "failed"
	)
)

// SetPortfolioGauges publishes the latest portfolio totals.
func SetPortfolioGauges(holdings, cards int, invested, value float64) {
	PortfolioHoldings.Set(float64(holdings))
	PortfolioCardsTotal.Set(float64(cards))
	PortfolioInvestedUSD.Set(invested)
	PortfolioValueUSD.Set(value)
}
