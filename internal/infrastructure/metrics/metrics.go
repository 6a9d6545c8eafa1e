// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsEnqueued counts submissions by result (accepted, full, closed, error).
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articleshelf",
			Name:      "jobs_enqueued_total",
			Help:      "Total number of ingestion job submissions",
		},
		[]string{"result"},
	)

	// JobsProcessed counts jobs by terminal outcome.
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articleshelf",
			Name:      "jobs_processed_total",
			Help:      "Total number of ingestion jobs finished, by outcome",
		},
		[]string{"outcome"},
	)

	// FetchAttempts counts extraction attempts by result.
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articleshelf",
			Name:      "fetch_attempts_total",
			Help:      "Total number of article fetch attempts",
		},
		[]string{"result"},
	)

	// JobDuration measures end-to-end job processing time.
	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "articleshelf",
			Name:      "job_duration_seconds",
			Help:      "Duration of ingestion job processing in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

// RecordEnqueue records one submission.
func RecordEnqueue(result string) {
	JobsEnqueued.WithLabelValues(result).Inc()
}

// RecordJob records a finished job.
func RecordJob(outcome string, seconds float64) {
	JobsProcessed.WithLabelValues(outcome).Inc()
	JobDuration.Observe(seconds)
}

// RecordFetch records one extraction attempt.
func RecordFetch(result string) {
	FetchAttempts.WithLabelValues(result).Inc()
}
