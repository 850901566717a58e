package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	pipelinedef "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config/pipeline"
	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	metrics "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/metrics"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// Pipeline is an assembled source, transformer chain, sink and listener set.
// A Pipeline is started at most once.
type Pipeline struct {
	id             string
	name           string
	trigger        pipelinedef.Trigger
	source         port.Source
	transformers   []port.Transformer
	sink           port.Sink
	listeners      []port.PipelineListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// ID returns the pipeline ID.
func (p *Pipeline) ID() string {
	return p.id
}

// Trigger returns the effective trigger.
func (p *Pipeline) Trigger() pipelinedef.Trigger {
	return p.trigger
}

// closers returns every component that holds resources, sink first.
func (p *Pipeline) closers() []io.Closer {
	var closers []io.Closer
	add := func(v interface{}) {
		if c, ok := v.(io.Closer); ok {
			closers = append(closers, c)
		}
	}
	add(p.sink)
	for i := len(p.transformers) - 1; i >= 0; i-- {
		add(p.transformers[i])
	}
	add(p.source)
	for _, l := range p.listeners {
		add(l)
	}
	return closers
}

// Start runs the pipeline in its own goroutine and returns the Handle that owns it.
// The run is not bound to ctx's cancellation; use Handle.Stop.
func (p *Pipeline) Start(ctx context.Context) *Handle {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := newHandle(p, uuid.New().String(), cancel)
	go p.run(runCtx, h)
	return h
}

func (p *Pipeline) run(ctx context.Context, h *Handle) {
	defer close(h.done)

	ctx, endSpan := p.tracer.StartPipelineSpan(ctx, p.id, h.runID)
	defer endSpan()

	h.update(func(s *model.PipelineStats) {
		s.Status = model.PipelineStatusRunning
		s.StartTime = time.Now()
	})
	start := h.Stats()
	for _, l := range p.listeners {
		l.BeforePipeline(ctx, &start)
	}
	logger.Infof("Pipeline '%s' started (run %s, mode %s).", p.id, h.runID, p.trigger.Mode)

	runErr := p.loop(ctx, h)

	h.update(func(s *model.PipelineStats) {
		s.EndTime = time.Now()
		switch {
		case runErr != nil:
			s.Status = model.PipelineStatusFailed
			s.LastError = runErr.Error()
		case ctx.Err() != nil:
			s.Status = model.PipelineStatusStopped
		default:
			s.Status = model.PipelineStatusCompleted
		}
	})
	h.setErr(runErr)

	end := h.Stats()
	afterCtx := context.WithoutCancel(ctx)
	for _, l := range p.listeners {
		l.AfterPipeline(afterCtx, &end)
	}
	logger.Infof("Pipeline '%s' finished with status %s: copied=%d, skipped=%d, failed=%d.",
		p.id, end.Status, end.Copied, end.Skipped, end.Failed)
}

// loop polls until the trigger completes or ctx is cancelled.
// In once mode a poll failure ends the run with that error; in poll mode it is logged and retried.
func (p *Pipeline) loop(ctx context.Context, h *Handle) error {
	if p.trigger.IsOnce() {
		return p.poll(ctx, h)
	}

	ticker := time.NewTicker(p.trigger.Interval)
	defer ticker.Stop()
	for {
		if err := p.poll(ctx, h); err != nil && ctx.Err() == nil {
			logger.Errorf("Pipeline '%s' poll failed: %v", p.id, err)
			h.update(func(s *model.PipelineStats) { s.LastError = err.Error() })
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) poll(ctx context.Context, h *Handle) error {
	pollCtx, endSpan := p.tracer.StartPollSpan(ctx, p.id)
	defer endSpan()
	started := time.Now()

	messages, err := p.source.Poll(pollCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.tracer.RecordError(pollCtx, "source", err)
		return err
	}
	if limit := p.trigger.MaxMessagesPerPoll; limit > 0 && len(messages) > limit {
		p.nack(pollCtx, messages[limit:])
		messages = messages[:limit]
	}

	h.update(func(s *model.PipelineStats) { s.Polls++ })
	for _, l := range p.listeners {
		l.OnPoll(pollCtx, p.id, len(messages))
	}

	for i, msg := range messages {
		if ctx.Err() != nil {
			p.nack(context.WithoutCancel(pollCtx), messages[i:])
			break
		}
		msg.RunID = h.runID
		if p.process(pollCtx, h, msg) {
			p.ack(pollCtx, msg)
		} else {
			p.nack(pollCtx, []*model.FileMessage{msg})
		}
	}
	p.metricRecorder.RecordDuration(ctx, "poll", time.Since(started), map[string]string{"pipeline_id": p.id})
	return nil
}

// ack and nack report message outcomes to a source that tracks them.
func (p *Pipeline) ack(ctx context.Context, msg *model.FileMessage) {
	if a, ok := p.source.(port.Acknowledger); ok {
		a.Ack(ctx, msg)
	}
}

func (p *Pipeline) nack(ctx context.Context, messages []*model.FileMessage) {
	a, ok := p.source.(port.Acknowledger)
	if !ok {
		return
	}
	for _, msg := range messages {
		a.Nack(ctx, msg)
	}
}

// process carries one message through the transformers to the sink and
// reports whether the sink copied or skipped it.
// Failures are reported to listeners and never stop the pipeline.
func (p *Pipeline) process(ctx context.Context, h *Handle, msg *model.FileMessage) bool {
	ctx, endSpan := p.tracer.StartMessageSpan(ctx, msg)
	defer endSpan()

	current := msg
	for _, t := range p.transformers {
		next, err := t.Transform(ctx, current)
		if err != nil {
			p.fail(ctx, h, current, asSkippable("transformer", "Transformation failed", current, err))
			return false
		}
		current = next
	}

	record, err := p.sink.Write(ctx, current)
	if err != nil {
		p.fail(ctx, h, current, asSkippable("sink", "Write failed", current, err))
		return false
	}
	if record == nil {
		record = model.NewCopyRecord(current, "", model.CopyStatusCopied, nil)
	}

	switch record.Status {
	case model.CopyStatusSkipped:
		h.update(func(s *model.PipelineStats) { s.Skipped++ })
		for _, l := range p.listeners {
			l.OnMessageSkipped(ctx, current, record)
		}
	default:
		h.update(func(s *model.PipelineStats) {
			s.Copied++
			s.BytesCopied += record.Size
		})
		for _, l := range p.listeners {
			l.OnMessageCopied(ctx, current, record)
		}
	}
	return true
}

func (p *Pipeline) fail(ctx context.Context, h *Handle, msg *model.FileMessage, err error) {
	logger.Warnf("Pipeline '%s': failed to copy '%s': %v", p.id, msg.ObjectName, err)
	h.update(func(s *model.PipelineStats) {
		s.Failed++
		s.LastError = err.Error()
	})
	for _, l := range p.listeners {
		l.OnMessageFailed(ctx, msg, err)
	}
}

// asSkippable keeps component BatchErrors as they are and wraps anything else.
func asSkippable(module, message string, msg *model.FileMessage, err error) error {
	var be *exception.BatchError
	if errors.As(err, &be) {
		return err
	}
	return exception.NewBatchErrorf(module, "%s for '%s'", message, msg.ObjectName, true, false, err)
}
