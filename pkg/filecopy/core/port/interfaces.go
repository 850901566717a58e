// Package port defines the interfaces that pipeline components implement.
// A pipeline is one Source, an ordered list of Transformers, one Sink and any number of listeners.
package port

import (
	"context"

	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
)

// Source produces the files to copy.
type Source interface {
	// Poll returns the files currently available, in listing order.
	// An empty slice means nothing new was found.
	Poll(ctx context.Context) ([]*model.FileMessage, error)
	// Ref returns the storage connection name the source reads from.
	Ref() string
}

// Acknowledger is implemented by sources that track the outcome of the messages they produced.
// The pipeline calls exactly one of Ack or Nack for every message returned by Poll.
type Acknowledger interface {
	// Ack is called once the sink copied or skipped msg.
	Ack(ctx context.Context, msg *model.FileMessage)
	// Nack is called when msg failed or was not processed. The source may offer it again.
	Nack(ctx context.Context, msg *model.FileMessage)
}

// Transformer converts a message on its way to the sink.
type Transformer interface {
	Transform(ctx context.Context, msg *model.FileMessage) (*model.FileMessage, error)
}

// Sink writes a message to its destination and reports the outcome.
type Sink interface {
	// Write returns a record with status COPIED or SKIPPED. Failures are returned as errors.
	Write(ctx context.Context, msg *model.FileMessage) (*model.CopyRecord, error)
}

// PipelineListener observes a pipeline run.
type PipelineListener interface {
	// BeforePipeline is called once, before the first poll.
	BeforePipeline(ctx context.Context, stats *model.PipelineStats)
	// AfterPipeline is called once, after the run loop has exited.
	AfterPipeline(ctx context.Context, stats *model.PipelineStats)
	// OnPoll is called after every poll with the number of files found.
	OnPoll(ctx context.Context, pipelineID string, found int)
	// OnMessageCopied is called after the sink wrote msg.
	OnMessageCopied(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord)
	// OnMessageSkipped is called when the sink chose not to write msg.
	OnMessageSkipped(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord)
	// OnMessageFailed is called when msg could not be copied.
	OnMessageFailed(ctx context.Context, msg *model.FileMessage, err error)
}

// BaseListener implements PipelineListener with no-ops. Embed it to override selected callbacks.
type BaseListener struct{}

func (BaseListener) BeforePipeline(ctx context.Context, stats *model.PipelineStats) {}
func (BaseListener) AfterPipeline(ctx context.Context, stats *model.PipelineStats) {}
func (BaseListener) OnPoll(ctx context.Context, pipelineID string, found int) {}
func (BaseListener) OnMessageCopied(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord) {
}
func (BaseListener) OnMessageSkipped(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord) {
}
func (BaseListener) OnMessageFailed(ctx context.Context, msg *model.FileMessage, err error) {}

var _ PipelineListener = BaseListener{}
