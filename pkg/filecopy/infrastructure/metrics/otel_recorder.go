package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	metrics "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/metrics"
)

const instrumentationName = "github.com/tigerroll/surfin-filecopy"

// OtelMetricRecorder is an OpenTelemetry implementation of the metrics.MetricRecorder interface.
// Instruments mirror the Prometheus recorder's series.
type OtelMetricRecorder struct {
	provider *sdkmetric.MeterProvider

	pipelineRuns      otelmetric.Int64Counter
	pipelineDuration  otelmetric.Float64Histogram
	pipelineRunning   otelmetric.Int64UpDownCounter
	polls             otelmetric.Int64Counter
	polledFiles       otelmetric.Int64Counter
	copied            otelmetric.Int64Counter
	copiedBytes       otelmetric.Int64Counter
	skipped           otelmetric.Int64Counter
	failed            otelmetric.Int64Counter
	operationDuration otelmetric.Float64Histogram
}

// NewOtelMetricRecorder creates a recorder exporting through an OTLP exporter on a periodic reader.
func NewOtelMetricRecorder(ctx context.Context, cfg config.MetricsConfig, serviceName string) (*OtelMetricRecorder, error) {
	exporter, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	interval := time.Duration(cfg.ExportIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	return NewOtelMetricRecorderWithReader(reader, serviceName)
}

// NewOtelMetricRecorderWithReader creates a recorder on top of an arbitrary reader.
func NewOtelMetricRecorderWithReader(reader sdkmetric.Reader, serviceName string) (*OtelMetricRecorder, error) {
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(newResource(serviceName)),
	)
	meter := provider.Meter(instrumentationName)

	r := &OtelMetricRecorder{provider: provider}
	var err error
	if r.pipelineRuns, err = meter.Int64Counter("filecopy.pipeline.runs", otelmetric.WithDescription("Pipeline runs by final status.")); err != nil {
		return nil, err
	}
	if r.pipelineDuration, err = meter.Float64Histogram("filecopy.pipeline.duration", otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.pipelineRunning, err = meter.Int64UpDownCounter("filecopy.pipeline.running"); err != nil {
		return nil, err
	}
	if r.polls, err = meter.Int64Counter("filecopy.polls"); err != nil {
		return nil, err
	}
	if r.polledFiles, err = meter.Int64Counter("filecopy.polled_files"); err != nil {
		return nil, err
	}
	if r.copied, err = meter.Int64Counter("filecopy.files.copied"); err != nil {
		return nil, err
	}
	if r.copiedBytes, err = meter.Int64Counter("filecopy.bytes.copied", otelmetric.WithUnit("By")); err != nil {
		return nil, err
	}
	if r.skipped, err = meter.Int64Counter("filecopy.files.skipped"); err != nil {
		return nil, err
	}
	if r.failed, err = meter.Int64Counter("filecopy.files.failed"); err != nil {
		return nil, err
	}
	if r.operationDuration, err = meter.Float64Histogram("filecopy.operation.duration", otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

// Shutdown flushes pending data points and stops the meter provider.
func (r *OtelMetricRecorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

func (r *OtelMetricRecorder) RecordPipelineStart(ctx context.Context, stats *model.PipelineStats) {
	r.pipelineRunning.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("pipeline_id", stats.PipelineID)))
}

func (r *OtelMetricRecorder) RecordPipelineEnd(ctx context.Context, stats *model.PipelineStats) {
	pipeline := attribute.String("pipeline_id", stats.PipelineID)
	status := attribute.String("status", stats.Status.String())
	r.pipelineRunning.Add(ctx, -1, otelmetric.WithAttributes(pipeline))
	r.pipelineRuns.Add(ctx, 1, otelmetric.WithAttributes(pipeline, status))
	if !stats.StartTime.IsZero() && !stats.EndTime.IsZero() {
		r.pipelineDuration.Record(ctx, stats.EndTime.Sub(stats.StartTime).Seconds(), otelmetric.WithAttributes(pipeline, status))
	}
}

func (r *OtelMetricRecorder) RecordPoll(ctx context.Context, pipelineID string, found int) {
	attrs := otelmetric.WithAttributes(attribute.String("pipeline_id", pipelineID))
	r.polls.Add(ctx, 1, attrs)
	r.polledFiles.Add(ctx, int64(found), attrs)
}

func (r *OtelMetricRecorder) RecordMessageCopied(ctx context.Context, pipelineID string, mode string, bytes int64) {
	attrs := otelmetric.WithAttributes(attribute.String("pipeline_id", pipelineID), attribute.String("mode", mode))
	r.copied.Add(ctx, 1, attrs)
	r.copiedBytes.Add(ctx, bytes, attrs)
}

func (r *OtelMetricRecorder) RecordMessageSkipped(ctx context.Context, pipelineID string, reason string) {
	r.skipped.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("pipeline_id", pipelineID), attribute.String("reason", reason)))
}

func (r *OtelMetricRecorder) RecordMessageFailed(ctx context.Context, pipelineID string, reason string) {
	r.failed.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("pipeline_id", pipelineID), attribute.String("reason", reason)))
}

func (r *OtelMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := []attribute.KeyValue{attribute.String("name", name)}
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operationDuration.Record(ctx, duration.Seconds(), otelmetric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OtelMetricRecorder)(nil)
