package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hype_stats"

// Store fetch outcomes
const (
	OutcomeOK           = "ok"
	OutcomeConnectError = "connect_error"
	OutcomeQueryError   = "query_error"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being served",
		},
	)
)

// Store Metrics
var (
	StoreFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_fetches_total",
			Help:      "Store fetches by outcome",
		},
		[]string{"outcome"},
	)

	StoreFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_fetch_duration_seconds",
			Help:      "Time from dial to connection release for one fetch",
			Buckets:   prometheus.DefBuckets,
		},
	)

	StoreRecordsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_records_returned",
			Help:      "Records returned per successful fetch",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)
