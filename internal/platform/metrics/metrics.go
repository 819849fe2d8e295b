// Package metrics declares the Prometheus collectors shared by the task
// runner and the response cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counters
	JobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hdx_age_jobs_submitted_total",
			Help: "Total number of jobs admitted to the task queue",
		},
		[]string{"job_type"},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hdx_age_jobs_completed_total",
			Help: "Total number of jobs that reached a terminal state",
		},
		[]string{"job_type", "status"}, // finished, failed
	)

	JobsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hdx_age_jobs_rejected_total",
			Help: "Total number of jobs refused at admission",
		},
		[]string{"reason"}, // full, closed
	)

	JobsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hdx_age_jobs_expired_total",
			Help: "Total number of terminal jobs removed by the retention sweep",
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hdx_age_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	CacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hdx_age_cache_invalidations_total",
			Help: "Explicit cache invalidations by operation",
		},
		[]string{"op"}, // delete, clear
	)

	// Gauges
	QueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hdx_age_queue_length",
			Help: "Current number of jobs waiting in the task queue",
		},
	)

	RunningJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hdx_age_running_jobs",
			Help: "Current number of jobs being executed",
		},
	)

	// Buckets: 5ms to ~82s
	JobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hdx_age_job_duration_seconds",
			Help:    "Job execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 15),
		},
		[]string{"job_type"},
	)
)
