package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
)

// NoOpMetricRecorder discards every metric.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordPipelineStart(ctx context.Context, stats *model.PipelineStats) {}
func (r *NoOpMetricRecorder) RecordPipelineEnd(ctx context.Context, stats *model.PipelineStats) {}
func (r *NoOpMetricRecorder) RecordPoll(ctx context.Context, pipelineID string, found int) {}
func (r *NoOpMetricRecorder) RecordMessageCopied(ctx context.Context, pipelineID string, mode string, bytes int64) {
}
func (r *NoOpMetricRecorder) RecordMessageSkipped(ctx context.Context, pipelineID string, reason string) {
}
func (r *NoOpMetricRecorder) RecordMessageFailed(ctx context.Context, pipelineID string, reason string) {
}
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

// NoOpTracer creates no spans.
type NoOpTracer struct{}

// NewNoOpTracer creates a NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartPipelineSpan(ctx context.Context, pipelineID, runID string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartPollSpan(ctx context.Context, pipelineID string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartMessageSpan(ctx context.Context, msg *model.FileMessage) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var (
	_ MetricRecorder = (*NoOpMetricRecorder)(nil)
	_ Tracer         = (*NoOpTracer)(nil)
)
