// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProofingStagesRun = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofing_stages_run_total",
			Help: "Total number of vendor proofing stages invoked",
		},
		[]string{"stage", "vendor", "outcome"},
	)

	ProofingStageFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofing_stage_faults_total",
			Help: "Total number of vendor stage invocations that raised",
		},
		[]string{"stage", "vendor"},
	)

	ProofingJobsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofing_jobs_dispatched_total",
			Help: "Total number of async proofing jobs dispatched",
		},
		[]string{"job_type", "status"},
	)

	ProofingStepOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofing_step_outcomes_total",
			Help: "Total number of concluded step attempts by failure reason",
		},
		[]string{"step", "reason"},
	)

	ProofingStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "proofing_stage_duration_seconds",
			Help: "Duration of vendor stage invocations in seconds",
		},
		[]string{"stage", "vendor"},
	)

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
)
