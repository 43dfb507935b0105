package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"saypay/pkg/services"
)

var (
	stageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saypay_pipeline_stage_runs_total",
		Help: "Pipeline stage executions",
	}, []string{"stage"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "saypay_pipeline_stage_duration_seconds",
		Help:    "Pipeline stage duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	pipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saypay_pipeline_errors_total",
		Help: "Pipeline errors by type",
	}, []string{"type"})

	fallbackDrafts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saypay_extraction_fallback_total",
		Help: "Drafts produced by the heuristic fallback parser",
	})

	expensesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saypay_expenses_saved_total",
		Help: "Expenses saved after review",
	})
)

// RestoreMetrics seeds counters with values queried from Prometheus so totals
// survive restarts.
func RestoreMetrics(snapshot services.MetricsSnapshot) {
	for errType, v := range snapshot.PipelineErrors {
		pipelineErrors.WithLabelValues(errType).Add(v)
	}
	for stage, v := range snapshot.StageRuns {
		stageRuns.WithLabelValues(stage).Add(v)
	}
	fallbackDrafts.Add(snapshot.FallbackDrafts)
	expensesSaved.Add(snapshot.ExpensesSaved)
}
