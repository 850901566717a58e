package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	metrics "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/metrics"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
type OpenTelemetryTracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer that batches spans to an OTLP exporter.
func NewOpenTelemetryTracer(ctx context.Context, cfg config.TracingConfig) (*OpenTelemetryTracer, error) {
	exporter, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1.0
	}
	return NewOpenTelemetryTracerWithOptions(cfg.ServiceName,
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	), nil
}

// NewOpenTelemetryTracerWithOptions creates a tracer from explicit provider options.
func NewOpenTelemetryTracerWithOptions(serviceName string, opts ...sdktrace.TracerProviderOption) *OpenTelemetryTracer {
	opts = append([]sdktrace.TracerProviderOption{sdktrace.WithResource(newResource(serviceName))}, opts...)
	provider := sdktrace.NewTracerProvider(opts...)
	return &OpenTelemetryTracer{
		provider: provider,
		tracer:   provider.Tracer(instrumentationName),
	}
}

// Shutdown flushes buffered spans and stops the tracer provider.
func (t *OpenTelemetryTracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// StartPipelineSpan starts a new span for a pipeline run.
func (t *OpenTelemetryTracer) StartPipelineSpan(ctx context.Context, pipelineID, runID string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "pipeline "+pipelineID,
		trace.WithAttributes(
			attribute.String("filecopy.pipeline_id", pipelineID),
			attribute.String("filecopy.run_id", runID),
		))
	return ctx, func() { span.End() }
}

// StartPollSpan starts a new span for one source poll.
func (t *OpenTelemetryTracer) StartPollSpan(ctx context.Context, pipelineID string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "poll",
		trace.WithAttributes(attribute.String("filecopy.pipeline_id", pipelineID)))
	return ctx, func() { span.End() }
}

// StartMessageSpan starts a new span for one file message.
func (t *OpenTelemetryTracer) StartMessageSpan(ctx context.Context, msg *model.FileMessage) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "copy "+msg.ObjectName,
		trace.WithAttributes(
			attribute.String("filecopy.message_id", msg.ID),
			attribute.String("filecopy.object", msg.ObjectName),
			attribute.Int64("filecopy.size", msg.Size),
		))
	return ctx, func() { span.End() }
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		logger.Debugf("Tracer: no active span for error in module %s: %v", module, err)
		return
	}
	span.RecordError(err, trace.WithAttributes(attribute.String("filecopy.module", module)))
	span.SetStatus(codes.Error, err.Error())
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
