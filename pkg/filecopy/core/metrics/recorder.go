package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics about pipeline runs.
// Implementations exist for Prometheus and OpenTelemetry; NoOpMetricRecorder is the default.
type MetricRecorder interface {
	// RecordPipelineStart records the start of a pipeline run.
	RecordPipelineStart(ctx context.Context, stats *model.PipelineStats)
	// RecordPipelineEnd records the end of a pipeline run, including its final status.
	RecordPipelineEnd(ctx context.Context, stats *model.PipelineStats)
	// RecordPoll records one poll of the source and the number of messages it produced.
	RecordPoll(ctx context.Context, pipelineID string, found int)
	// RecordMessageCopied records one copied file and its payload size.
	RecordMessageCopied(ctx context.Context, pipelineID string, mode string, bytes int64)
	// RecordMessageSkipped records a file the sink chose not to write.
	RecordMessageSkipped(ctx context.Context, pipelineID string, reason string)
	// RecordMessageFailed records a file that could not be copied.
	// reason is a short classification such as the failing module.
	RecordMessageFailed(ctx context.Context, pipelineID string, reason string)
	// RecordDuration records the execution time of an operation.
	//
	// tags: additional attributes, e.g. `{"pipeline_id": "filecopy-binary"}`
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
