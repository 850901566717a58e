// Package logging logs the progress of a pipeline run.
package logging

import (
	"context"

	"go.uber.org/fx"

	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// ListenerRef is the reference name of the logging listener.
const ListenerRef = "loggingListener"

type LoggingListener struct{}

func NewLoggingListener() port.PipelineListener {
	return &LoggingListener{}
}

func (l *LoggingListener) BeforePipeline(ctx context.Context, stats *model.PipelineStats) {
	logger.Infof("PipelineListener: BeforePipeline - PipelineID: %s, RunID: %s", stats.PipelineID, stats.RunID)
}

func (l *LoggingListener) AfterPipeline(ctx context.Context, stats *model.PipelineStats) {
	logger.Infof("PipelineListener: AfterPipeline - PipelineID: %s, Status: %s, Polls: %d, Copied: %d, Skipped: %d, Failed: %d, Bytes: %d",
		stats.PipelineID, stats.Status, stats.Polls, stats.Copied, stats.Skipped, stats.Failed, stats.BytesCopied)
}

func (l *LoggingListener) OnPoll(ctx context.Context, pipelineID string, found int) {
	logger.Debugf("PipelineListener: OnPoll - PipelineID: %s, Found: %d", pipelineID, found)
}

func (l *LoggingListener) OnMessageCopied(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord) {
	logger.Infof("PipelineListener: Copied '%s' (%s, %d bytes) to '%s'", msg.ObjectName, msg.Kind, record.Size, record.TargetRef)
}

func (l *LoggingListener) OnMessageSkipped(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord) {
	logger.Infof("PipelineListener: Skipped '%s', target exists in '%s'", msg.ObjectName, record.TargetRef)
}

func (l *LoggingListener) OnMessageFailed(ctx context.Context, msg *model.FileMessage, err error) {
	logger.Errorf("PipelineListener: Failed '%s': %v", msg.ObjectName, err)
}

var _ port.PipelineListener = (*LoggingListener)(nil)

// RegisterLoggingListener registers the logging listener builder.
func RegisterLoggingListener(registry *pipeline.Registry) {
	registry.RegisterListener(ListenerRef, func(_ pipeline.Dependencies, _ map[string]string) (port.PipelineListener, error) {
		return NewLoggingListener(), nil
	})
}

// Module registers the logging listener.
var Module = fx.Options(
	fx.Invoke(RegisterLoggingListener),
)
