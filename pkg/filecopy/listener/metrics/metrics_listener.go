// Package metrics records pipeline events through the configured MetricRecorder.
package metrics

import (
	"context"
	"errors"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/metrics"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
)

// ListenerRef is the reference name of the metrics listener.
const ListenerRef = "metricsListener"

// MetricsListener forwards pipeline events to a MetricRecorder.
type MetricsListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsListener(recorder metrics.MetricRecorder) *MetricsListener {
	return &MetricsListener{recorder: recorder}
}

func (l *MetricsListener) BeforePipeline(ctx context.Context, stats *model.PipelineStats) {
	l.recorder.RecordPipelineStart(ctx, stats)
}

func (l *MetricsListener) AfterPipeline(ctx context.Context, stats *model.PipelineStats) {
	l.recorder.RecordPipelineEnd(ctx, stats)
}

func (l *MetricsListener) OnPoll(ctx context.Context, pipelineID string, found int) {
	l.recorder.RecordPoll(ctx, pipelineID, found)
}

func (l *MetricsListener) OnMessageCopied(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord) {
	l.recorder.RecordMessageCopied(ctx, msg.PipelineID, string(msg.Kind), record.Size)
}

func (l *MetricsListener) OnMessageSkipped(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord) {
	l.recorder.RecordMessageSkipped(ctx, msg.PipelineID, "exists")
}

// OnMessageFailed uses the failing module as the reason.
func (l *MetricsListener) OnMessageFailed(ctx context.Context, msg *model.FileMessage, err error) {
	l.recorder.RecordMessageFailed(ctx, msg.PipelineID, failureReason(err))
}

func failureReason(err error) string {
	var be *exception.BatchError
	if errors.As(err, &be) {
		return be.Module
	}
	return "unknown"
}

var _ port.PipelineListener = (*MetricsListener)(nil)
