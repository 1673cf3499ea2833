// Package observability exposes Prometheus metrics for the ingestion pipeline.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ImportFilesTotal tracks processed files by format and final status
	ImportFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_import_files_total",
			Help: "Total number of imported files",
		},
		[]string{"format", "status"},
	)

	// ImportRowsTotal tracks row outcomes (accepted, rejected, duplicate)
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_import_rows_total",
			Help: "Total number of rows seen by the import pipeline",
		},
		[]string{"format", "outcome"},
	)

	// ImportDuration tracks per-file import duration
	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backoffice_import_duration_seconds",
			Help:    "File import duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	// ReconcileBatchesTotal tracks reconciliation batches by status
	ReconcileBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_reconcile_batches_total",
			Help: "Total number of reconciliation batches processed",
		},
		[]string{"status"},
	)

	// ReconcileRowsTotal tracks staged rows by reconciliation outcome
	ReconcileRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_reconcile_rows_total",
			Help: "Total number of staged rows reconciled",
		},
		[]string{"outcome"},
	)
)

// ObserveImport records the outcome counters for one imported file
func ObserveImport(format, status string, accepted, rejected, duplicates int, elapsed time.Duration) {
	ImportFilesTotal.WithLabelValues(format, status).Inc()
	ImportRowsTotal.WithLabelValues(format, "accepted").Add(float64(accepted))
	ImportRowsTotal.WithLabelValues(format, "rejected").Add(float64(rejected))
	ImportRowsTotal.WithLabelValues(format, "duplicate").Add(float64(duplicates))
	ImportDuration.WithLabelValues(format).Observe(elapsed.Seconds())
}

// Serve starts a blocking /metrics HTTP listener on the given port
func Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
