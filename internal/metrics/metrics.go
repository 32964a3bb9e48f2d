// Package metrics provides Prometheus metrics for the skin portfolio backend.
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
			Name: "skinfolio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skinfolio_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Bulk snapshot (Skinport) Metrics
	SnapshotRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skinfolio_snapshot_refresh_total",
			Help: "Bulk market snapshot refresh attempts",
		},
		[]string{"result"}, // "success", "error", "skipped"
	)

	SnapshotItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skinfolio_snapshot_items",
			Help: "Number of items in the installed market snapshot",
		},
	)

	SnapshotRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skinfolio_snapshot_refresh_duration_seconds",
			Help:    "Time taken to download and install a market snapshot",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Steam Market Metrics
	SteamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skinfolio_steam_requests_total",
			Help: "Steam priceoverview requests by caller and outcome",
		},
		[]string{"caller", "result"}, // caller: "ondemand", "scheduler"; result: "ok", "rate_limited", "throttled", "error", "malformed"
	)

	SteamCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skinfolio_steam_cache_hits_total",
			Help: "On-demand Steam price cache hits",
		},
	)

	SchedulerQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skinfolio_scheduler_queue_size",
			Help: "Number of tracked items in the background price queue",
		},
	)

	// Exchange Rate Metrics
	ExchangeRateRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skinfolio_exchange_rate_refresh_total",
			Help: "Exchange rate refresh attempts",
		},
		[]string{"result"}, // "success", "error"
	)

	// Resolution and Search Metrics
	PriceResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skinfolio_price_resolutions_total",
			Help: "Price resolutions by source",
		},
		[]string{"source"}, // "skinport", "steam", "not_found"
	)

	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skinfolio_search_requests_total",
			Help: "Search requests by the source that answered",
		},
		[]string{"source"}, // "skinport", "catalog", "cache", "rejected"
	)

	IconIndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skinfolio_icon_index_size",
			Help: "Number of names in the icon index",
		},
	)

	// Portfolio Metrics
	PortfolioItemsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skinfolio_portfolio_items_total",
			Help: "Number of items across all portfolios",
		},
	)
)
