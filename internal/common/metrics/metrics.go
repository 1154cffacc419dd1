// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// AnalysesTotal counts analysis runs by outcome: ok, cached or an error code.
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lease_analyses_total",
			Help: "Total number of lease analyses by outcome",
		},
		[]string{"outcome"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lease_analysis_duration_seconds",
			Help:    "Duration of a lease analysis in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"convention"},
	)

	// SideEffectFailures counts non-fatal backend failures (cache, store, index, notify).
	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lease_analysis_side_effect_failures_total",
			Help: "Total number of failed persistence or notification side effects",
		},
		[]string{"backend"},
	)
)
