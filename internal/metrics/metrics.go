// Package metrics holds the Prometheus collectors shared across the
// indexing pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "rtx_index"

var (
	// FilesScannedTotal counts every file (not directory) the scanner visited,
	// labeled by parse outcome ("parsed", "unknown_format",
	// "malformed_filename", "not_audio").
	FilesScannedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_scanned_total",
		Help:      "Files visited by the scanner, labeled by parse outcome.",
	}, []string{"outcome"})

	// TaskOutcomesTotal counts enrichment task completions, labeled by
	// capability ("duration", "hash", "transcription") and outcome
	// ("success", "failure").
	TaskOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_outcomes_total",
		Help:      "Enrichment task completions, labeled by capability and outcome.",
	}, []string{"capability", "outcome"})

	// TaskDurationSeconds observes how long each enrichment task took.
	TaskDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Enrichment task duration in seconds, labeled by capability.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"capability"})

	// QueueDepth reports the number of tasks currently queued or in flight.
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Tasks currently queued or running in the parallel runner.",
	})

	// RateLimiterWaitsTotal counts how many times a task had to wait on the
	// rate limiter before being admitted.
	RateLimiterWaitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limiter_waits_total",
		Help:      "Times a task waited on the rate limiter before starting.",
	})

	// ConflictsTotal counts re-scan conflicts where an existing row's
	// station or file name disagreed with the newly parsed record for the
	// same composite key, labeled by kind ("station", "path"). Resolves
	// the open question on mismatch handling: logged and surfaced here
	// rather than treated as fatal.
	ConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conflicts_total",
		Help:      "Re-scan conflicts against an already-catalogued recording, labeled by kind.",
	}, []string{"kind"})

	// SearchIndexStale is 1 when the search index was rebuilt on last
	// open because it was older than the catalog, 0 when it was reused
	// as-is.
	SearchIndexStale = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "search_index_stale",
		Help:      "1 if the search index was rebuilt on last open, 0 if reused.",
	})
)

func init() {
	prometheus.MustRegister(
		FilesScannedTotal,
		TaskOutcomesTotal,
		TaskDurationSeconds,
		QueueDepth,
		RateLimiterWaitsTotal,
		ConflictsTotal,
		SearchIndexStale,
	)
}
