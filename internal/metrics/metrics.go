// Package metrics provides Prometheus metrics for the treasury tracker.
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
			Name: "ctt_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ctt_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Price Resolution Metrics
	PriceResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctt_price_resolutions_total",
			Help: "Price resolutions by the tier that served them",
		},
		[]string{"source"}, // "ledger", "live", "fallback"
	)

	PriceTierFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctt_price_tier_failures_total",
			Help: "Price tier attempts that were unavailable or incomplete",
		},
		[]string{"tier", "reason"}, // reason: "error", "incomplete"
	)

	PriceCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ctt_price_cache_hits_total",
			Help: "Resolved price cache hit count",
		},
	)

	AssetPriceUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ctt_asset_price_usd",
			Help: "Last resolved USD price per asset",
		},
		[]string{"asset"},
	)

	// CoinGecko API Metrics
	CoinGeckoRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctt_coingecko_requests_total",
			Help: "Total number of CoinGecko API requests made",
		},
		[]string{"result"}, // "success", "failed"
	)

	CoinGeckoAPILatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ctt_coingecko_api_latency_seconds",
			Help:    "CoinGecko API call latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	// Spreadsheet Metrics
	SheetReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctt_sheet_reads_total",
			Help: "Tabular store reads by kind and outcome",
		},
		[]string{"kind", "result"}, // kind: "batch", "single"
	)

	SkippedTablesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctt_skipped_tables_total",
			Help: "Per-asset tables skipped because they were absent or malformed",
		},
		[]string{"table", "asset"}, // table: "holdings", "historic"
	)

	// Ledger Metrics
	LedgerRowsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ctt_ledger_rows_written_total",
			Help: "Total number of price ledger rows written",
		},
	)

	LedgerUpdateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ctt_ledger_update_duration_seconds",
			Help:    "Time taken to fetch and record one ledger update",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Treasury Metrics
	TreasuryValueUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ctt_treasury_value_usd",
			Help: "Total USD value of all tracked treasury holdings",
		},
	)

	TreasuryValueByAsset = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ctt_treasury_value_by_asset_usd",
			Help: "Treasury holdings value in USD by asset",
		},
		[]string{"asset"},
	)

	TreasuryEntitiesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ctt_treasury_entities_total",
			Help: "Number of distinct entities in the current snapshot",
		},
	)
)
