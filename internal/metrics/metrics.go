// Package metrics registers the Prometheus collectors InboxKeeper exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rule pass metrics
var (
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxkeeper_records_processed_total",
			Help: "Records matched and acted on, by rule.",
		},
		[]string{"rule"},
	)

	RulePassFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxkeeper_rule_pass_failures_total",
			Help: "Rule passes aborted by a store or dispatcher error.",
		},
		[]string{"rule"},
	)

	RulePassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inboxkeeper_rule_pass_duration_seconds",
			Help:    "Wall time of one rule pass.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"rule"},
	)
)

// Dispatcher metrics
var (
	DispatchCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxkeeper_dispatch_calls_total",
			Help: "Action dispatcher calls.",
		},
		[]string{"action", "status"}, // action: "mark", "move"; status: "ok", "error"
	)

	DispatchKeys = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inboxkeeper_dispatch_keys",
			Help:    "Keys per dispatcher call.",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
		},
	)
)

// Store and ingestion metrics
var (
	StoreTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxkeeper_store_transactions_total",
			Help: "Insert-if-absent transactions.",
		},
		[]string{"status"}, // status: "commit", "rollback"
	)

	RecordsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inboxkeeper_records_ingested_total",
			Help: "New records stored by ingestion.",
		},
	)

	IngestFetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inboxkeeper_ingest_fetch_errors_total",
			Help: "Messages that could not be fetched or parsed.",
		},
	)
)

// Dispatch statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)
