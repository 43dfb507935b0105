package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// MetricsSnapshot contains restored metric values
type MetricsSnapshot struct {
	PipelineErrors map[string]float64 // error type -> count
	StageRuns      map[string]float64 // stage -> count
	FallbackDrafts float64
	ExpensesSaved  float64
}

// PrometheusClient wraps Prometheus API client
type PrometheusClient struct {
	api    v1.API
	logger Logger
}

// Logger interface for prometheus client
type Logger interface {
	Print(ctx context.Context, msg string, args ...interface{})
	Error(ctx context.Context, msg string, args ...interface{})
}

// NewPrometheusClient creates a new Prometheus API client
func NewPrometheusClient(prometheusURL string, logger Logger) (*PrometheusClient, error) {
	// Allow override via environment variable
	if envURL := os.Getenv("PROMETHEUS_URL"); envURL != "" {
		prometheusURL = envURL
	}

	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}

	return &PrometheusClient{
		api:    v1.NewAPI(client),
		logger: logger,
	}, nil
}

// RestoreMetrics queries Prometheus for the last known pipeline counter values,
// so dashboards keep continuity across process restarts.
func (p *PrometheusClient) RestoreMetrics(ctx context.Context) (*MetricsSnapshot, error) {
	snapshot := &MetricsSnapshot{
		PipelineErrors: make(map[string]float64),
		StageRuns:      make(map[string]float64),
	}

	labeled := map[string]struct {
		query string
		label string
	}{
		"errors": {query: "saypay_pipeline_errors_total", label: "type"},
		"stages": {query: "saypay_pipeline_stage_runs_total", label: "stage"},
	}

	for name, q := range labeled {
		result, warnings, err := p.api.Query(ctx, q.query, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", name, err)
		}

		if len(warnings) > 0 {
			p.logger.Print(ctx, "prometheus query warnings", "metric", name, "warnings", warnings)
		}

		values := p.parseVectorWithLabels(result, q.label)
		switch name {
		case "errors":
			snapshot.PipelineErrors = values
		case "stages":
			snapshot.StageRuns = values
		}
	}

	var err error
	if snapshot.FallbackDrafts, err = p.queryScalar(ctx, "saypay_extraction_fallback_total"); err != nil {
		return nil, err
	}
	if snapshot.ExpensesSaved, err = p.queryScalar(ctx, "saypay_expenses_saved_total"); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// queryScalar sums all samples of a counter series.
func (p *PrometheusClient) queryScalar(ctx context.Context, query string) (float64, error) {
	result, _, err := p.api.Query(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to query %s: %w", query, err)
	}

	vector, ok := result.(model.Vector)
	if !ok {
		return 0, nil
	}

	var total float64
	for _, sample := range vector {
		total += float64(sample.Value)
	}
	return total, nil
}

// parseVectorWithLabels extracts values from vector result grouped by label
func (p *PrometheusClient) parseVectorWithLabels(value model.Value, labelName string) map[string]float64 {
	result := make(map[string]float64)

	if value == nil {
		return result
	}

	vector, ok := value.(model.Vector)
	if !ok {
		return result
	}

	for _, sample := range vector {
		labelValue := string(sample.Metric[model.LabelName(labelName)])
		result[labelValue] = float64(sample.Value)
	}

	return result
}

// CheckHealth verifies Prometheus is accessible
func (p *PrometheusClient) CheckHealth(ctx context.Context) error {
	// Try to get build info as health check
	_, err := p.api.Buildinfo(ctx)
	return err
}
