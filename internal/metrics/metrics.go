// Package metrics provides Prometheus metrics for the milk ledger.
// Scrape these at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "milkledger_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SuspiciousRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "milkledger_http_suspicious_requests_total",
			Help: "Requests matching a known probe pattern",
		},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "milkledger_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	ReportCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkledger_report_cache_total",
			Help: "Report cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	// Ledger Metrics
	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkledger_operations_total",
			Help: "Ledger operations by kind and outcome",
		},
		[]string{"op", "result"},
	)

	LedgerRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "milkledger_records",
			Help: "Number of records in the ledger after the last load or write",
		},
	)

	NotifyFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "milkledger_notify_failures_total",
			Help: "Change notifications that could not be delivered",
		},
	)

	// Report Metrics
	ReportsBuiltTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkledger_reports_built_total",
			Help: "Reports built, by outcome (ok, empty)",
		},
		[]string{"result"},
	)

	ReportPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkledger_report_publish_total",
			Help: "Report publications per sink and outcome",
		},
		[]string{"sink", "result"},
	)

	ReportPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "milkledger_report_publish_duration_seconds",
			Help:    "Time taken to publish a report to all sinks",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultEmpty = "empty"
)

// Outcome maps an error to a result label.
func Outcome(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
