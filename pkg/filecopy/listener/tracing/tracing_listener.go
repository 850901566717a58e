// Package tracing adds per-file events to the spans opened by the pipeline.
package tracing

import (
	"context"
	"errors"

	"go.uber.org/fx"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/metrics"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
)

// ListenerRef is the reference name of the tracing listener.
const ListenerRef = "tracingListener"

// TracingListener records pipeline events on the span carried by the callback context.
type TracingListener struct {
	port.BaseListener
	tracer metrics.Tracer
}

func NewTracingListener(tracer metrics.Tracer) *TracingListener {
	return &TracingListener{tracer: tracer}
}

func (l *TracingListener) BeforePipeline(ctx context.Context, stats *model.PipelineStats) {
	l.tracer.RecordEvent(ctx, "pipeline.started", map[string]interface{}{
		"pipeline.id": stats.PipelineID,
		"run.id":      stats.RunID,
	})
}

func (l *TracingListener) AfterPipeline(ctx context.Context, stats *model.PipelineStats) {
	l.tracer.RecordEvent(ctx, "pipeline.finished", map[string]interface{}{
		"status":       stats.Status.String(),
		"copied":       stats.Copied,
		"skipped":      stats.Skipped,
		"failed":       stats.Failed,
		"bytes.copied": stats.BytesCopied,
	})
}

func (l *TracingListener) OnPoll(ctx context.Context, pipelineID string, found int) {
	l.tracer.RecordEvent(ctx, "poll.completed", map[string]interface{}{"found": found})
}

func (l *TracingListener) OnMessageCopied(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord) {
	l.tracer.RecordEvent(ctx, "file.copied", map[string]interface{}{
		"target": record.TargetRef,
		"bytes":  record.Size,
		"mode":   string(msg.Kind),
	})
}

func (l *TracingListener) OnMessageSkipped(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord) {
	l.tracer.RecordEvent(ctx, "file.skipped", map[string]interface{}{"target": record.TargetRef})
}

func (l *TracingListener) OnMessageFailed(ctx context.Context, msg *model.FileMessage, err error) {
	module := "pipeline"
	var be *exception.BatchError
	if errors.As(err, &be) {
		module = be.Module
	}
	l.tracer.RecordError(ctx, module, err)
}

var _ port.PipelineListener = (*TracingListener)(nil)

// RegisterTracingListener registers the tracing listener builder.
func RegisterTracingListener(registry *pipeline.Registry) {
	registry.RegisterListener(ListenerRef, func(deps pipeline.Dependencies, _ map[string]string) (port.PipelineListener, error) {
		tracer := deps.Tracer
		if tracer == nil {
			tracer = metrics.NewNoOpTracer()
		}
		return NewTracingListener(tracer), nil
	})
}

// Module registers the tracing listener.
var Module = fx.Options(
	fx.Invoke(RegisterTracingListener),
)
