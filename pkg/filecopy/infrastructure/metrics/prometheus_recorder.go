package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	metrics "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/metrics"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Pipeline Metrics
	pipelineRunsTotal       *prometheus.CounterVec
	pipelineDurationSeconds *prometheus.HistogramVec
	pipelineRunning         *prometheus.GaugeVec

	// Poll Metrics
	pollsTotal  *prometheus.CounterVec
	polledFiles *prometheus.CounterVec

	// Message Metrics
	copiedTotal  *prometheus.CounterVec
	copiedBytes  *prometheus.CounterVec
	skippedTotal *prometheus.CounterVec
	failedTotal  *prometheus.CounterVec

	operationDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder with its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		pipelineRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filecopy_pipeline_runs_total",
			Help: "Total number of pipeline runs by final status.",
		}, []string{"pipeline_id", "status"}),
		pipelineDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filecopy_pipeline_duration_seconds",
			Help:    "Duration of pipeline runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pipeline_id", "status"}),
		pipelineRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "filecopy_pipeline_running",
			Help: "1 while the pipeline is running.",
		}, []string{"pipeline_id"}),
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filecopy_polls_total",
			Help: "Total number of source polls.",
		}, []string{"pipeline_id"}),
		polledFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filecopy_polled_files_total",
			Help: "Total number of files returned by source polls.",
		}, []string{"pipeline_id"}),
		copiedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filecopy_files_copied_total",
			Help: "Total number of files copied.",
		}, []string{"pipeline_id", "mode"}),
		copiedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filecopy_bytes_copied_total",
			Help: "Total payload bytes copied.",
		}, []string{"pipeline_id", "mode"}),
		skippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filecopy_files_skipped_total",
			Help: "Total number of files the sink did not write.",
		}, []string{"pipeline_id", "reason"}),
		failedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filecopy_files_failed_total",
			Help: "Total number of files that failed to copy.",
		}, []string{"pipeline_id", "reason"}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filecopy_operation_duration_seconds",
			Help:    "Duration of named operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name", "pipeline_id"}),
	}

	registry.MustRegister(
		r.pipelineRunsTotal,
		r.pipelineDurationSeconds,
		r.pipelineRunning,
		r.pollsTotal,
		r.polledFiles,
		r.copiedTotal,
		r.copiedBytes,
		r.skippedTotal,
		r.failedTotal,
		r.operationDurationSeconds,
	)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *PrometheusRecorder) RecordPipelineStart(ctx context.Context, stats *model.PipelineStats) {
	r.pipelineRunning.WithLabelValues(stats.PipelineID).Set(1)
	logger.Debugf("Metrics: Pipeline '%s' started.", stats.PipelineID)
}

func (r *PrometheusRecorder) RecordPipelineEnd(ctx context.Context, stats *model.PipelineStats) {
	status := stats.Status.String()
	r.pipelineRunning.WithLabelValues(stats.PipelineID).Set(0)
	r.pipelineRunsTotal.WithLabelValues(stats.PipelineID, status).Inc()
	if !stats.StartTime.IsZero() && !stats.EndTime.IsZero() {
		r.pipelineDurationSeconds.WithLabelValues(stats.PipelineID, status).Observe(stats.EndTime.Sub(stats.StartTime).Seconds())
	}
	logger.Debugf("Metrics: Pipeline '%s' ended with status %s.", stats.PipelineID, status)
}

func (r *PrometheusRecorder) RecordPoll(ctx context.Context, pipelineID string, found int) {
	r.pollsTotal.WithLabelValues(pipelineID).Inc()
	r.polledFiles.WithLabelValues(pipelineID).Add(float64(found))
}

func (r *PrometheusRecorder) RecordMessageCopied(ctx context.Context, pipelineID string, mode string, bytes int64) {
	r.copiedTotal.WithLabelValues(pipelineID, mode).Inc()
	r.copiedBytes.WithLabelValues(pipelineID, mode).Add(float64(bytes))
}

func (r *PrometheusRecorder) RecordMessageSkipped(ctx context.Context, pipelineID string, reason string) {
	r.skippedTotal.WithLabelValues(pipelineID, reason).Inc()
}

func (r *PrometheusRecorder) RecordMessageFailed(ctx context.Context, pipelineID string, reason string) {
	r.failedTotal.WithLabelValues(pipelineID, reason).Inc()
}

func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDurationSeconds.WithLabelValues(name, tags["pipeline_id"]).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
