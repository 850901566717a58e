package metrics

import (
	"context"

	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing of pipeline runs.
// Spans nest as pipeline > poll > message.
type Tracer interface {
	// StartPipelineSpan starts the span covering a whole pipeline run.
	// The returned function ends the span.
	StartPipelineSpan(ctx context.Context, pipelineID, runID string) (context.Context, func())
	// StartPollSpan starts the span of one source poll.
	StartPollSpan(ctx context.Context, pipelineID string) (context.Context, func())
	// StartMessageSpan starts the span covering the transformation and write of one file.
	StartMessageSpan(ctx context.Context, msg *model.FileMessage) (context.Context, func())
	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
