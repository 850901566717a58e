package metrics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/metrics"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// MetricEvent represents a metric event to be recorded asynchronously.
type MetricEvent struct {
	Type  string
	Ctx   context.Context
	Stats *model.PipelineStats
	// PipelineID identifies the pipeline for poll and per-file events.
	PipelineID string
	Name       string
	Mode       string
	Reason     string
	Found      int
	Bytes      int64
	Duration   time.Duration
	Tags       map[string]string
}

// Metric event type constants
const (
	MetricEventTypePipelineStart  = "pipeline_start"
	MetricEventTypePipelineEnd    = "pipeline_end"
	MetricEventTypePoll           = "poll"
	MetricEventTypeMessageCopied  = "message_copied"
	MetricEventTypeMessageSkipped = "message_skipped"
	MetricEventTypeMessageFailed  = "message_failed"
	MetricEventTypeRecordDuration = "record_duration"
)

// AsyncMetricRecorder asynchronously records metrics by pushing events to a channel
// and processing them in a separate goroutine.
type AsyncMetricRecorder struct {
	eventQueue   chan MetricEvent
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	syncRecorder metrics.MetricRecorder
}

var _ metrics.MetricRecorder = (*AsyncMetricRecorder)(nil)

// NewAsyncMetricRecorder creates a new asynchronous metric recorder.
// A bufferSize of 0 or less uses the default of 100.
func NewAsyncMetricRecorder(bufferSize int, syncRec metrics.MetricRecorder) *AsyncMetricRecorder {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	r := &AsyncMetricRecorder{
		eventQueue:   make(chan MetricEvent, bufferSize),
		stopCh:       make(chan struct{}),
		syncRecorder: syncRec,
	}
	r.wg.Add(1)
	go r.run()
	logger.Debugf("AsyncMetricRecorder: Worker goroutine started (buffer size: %d).", bufferSize)
	return r
}

func (r *AsyncMetricRecorder) run() {
	defer r.wg.Done()
	for {
		select {
		case event := <-r.eventQueue:
			r.processEvent(event)
		case <-r.stopCh:
			// Drain what is already queued before exiting.
			remainingEvents := len(r.eventQueue)
			for i := 0; i < remainingEvents; i++ {
				r.processEvent(<-r.eventQueue)
			}
			logger.Debugf("AsyncMetricRecorder: Worker goroutine stopped. Processed %d remaining events.", remainingEvents)
			return
		}
	}
}

func (r *AsyncMetricRecorder) processEvent(event MetricEvent) {
	ctx := event.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	switch event.Type {
	case MetricEventTypePipelineStart:
		r.syncRecorder.RecordPipelineStart(ctx, event.Stats)
	case MetricEventTypePipelineEnd:
		r.syncRecorder.RecordPipelineEnd(ctx, event.Stats)
	case MetricEventTypePoll:
		r.syncRecorder.RecordPoll(ctx, event.PipelineID, event.Found)
	case MetricEventTypeMessageCopied:
		r.syncRecorder.RecordMessageCopied(ctx, event.PipelineID, event.Mode, event.Bytes)
	case MetricEventTypeMessageSkipped:
		r.syncRecorder.RecordMessageSkipped(ctx, event.PipelineID, event.Reason)
	case MetricEventTypeMessageFailed:
		r.syncRecorder.RecordMessageFailed(ctx, event.PipelineID, event.Reason)
	case MetricEventTypeRecordDuration:
		r.syncRecorder.RecordDuration(ctx, event.Name, event.Duration, event.Tags)
	default:
		logger.Warnf("AsyncMetricRecorder: Unknown metric event type: %s", event.Type)
	}
}

// Close stops the worker after the queued events have been recorded. It is safe to call more than once.
func (r *AsyncMetricRecorder) Close() {
	r.stopOnce.Do(func() {
		logger.Debugf("AsyncMetricRecorder: Sending shutdown signal...")
		close(r.stopCh)
		r.wg.Wait()
		logger.Debugf("AsyncMetricRecorder: Shutdown complete.")
	})
}

// sendEvent queues an event, discarding it with a warning when the queue is full.
func (r *AsyncMetricRecorder) sendEvent(ctx context.Context, event MetricEvent, id string) {
	event.Ctx = context.WithoutCancel(ctx)
	select {
	case r.eventQueue <- event:
	default:
		logger.Warnf("AsyncMetricRecorder: Event queue is full (type: %s, ID: %s). Event discarded.", event.Type, id)
	}
}

// snapshot copies stats so later updates by the pipeline do not race with the worker.
func snapshot(stats *model.PipelineStats) *model.PipelineStats {
	if stats == nil {
		return &model.PipelineStats{}
	}
	s := *stats
	return &s
}

func (r *AsyncMetricRecorder) RecordPipelineStart(ctx context.Context, stats *model.PipelineStats) {
	s := snapshot(stats)
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypePipelineStart, Stats: s}, s.RunID)
}

func (r *AsyncMetricRecorder) RecordPipelineEnd(ctx context.Context, stats *model.PipelineStats) {
	s := snapshot(stats)
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypePipelineEnd, Stats: s}, s.RunID)
}

func (r *AsyncMetricRecorder) RecordPoll(ctx context.Context, pipelineID string, found int) {
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypePoll, PipelineID: pipelineID, Found: found}, pipelineID)
}

func (r *AsyncMetricRecorder) RecordMessageCopied(ctx context.Context, pipelineID string, mode string, bytes int64) {
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypeMessageCopied, PipelineID: pipelineID, Mode: mode, Bytes: bytes}, pipelineID)
}

func (r *AsyncMetricRecorder) RecordMessageSkipped(ctx context.Context, pipelineID string, reason string) {
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypeMessageSkipped, PipelineID: pipelineID, Reason: reason}, pipelineID)
}

func (r *AsyncMetricRecorder) RecordMessageFailed(ctx context.Context, pipelineID string, reason string) {
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypeMessageFailed, PipelineID: pipelineID, Reason: reason}, pipelineID)
}

func (r *AsyncMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.sendEvent(ctx, MetricEvent{Type: MetricEventTypeRecordDuration, Name: name, Duration: duration, Tags: tags}, name)
}

// NewAsyncMetricRecorderWrapper decorates the configured MetricRecorder with an AsyncMetricRecorder
// and closes it on application stop.
func NewAsyncMetricRecorderWrapper(lc fx.Lifecycle, cfg *config.Config, syncRecorder metrics.MetricRecorder) metrics.MetricRecorder {
	if _, ok := syncRecorder.(*metrics.NoOpMetricRecorder); ok {
		return syncRecorder
	}
	asyncRecorder := NewAsyncMetricRecorder(cfg.FileCopy.Metrics.AsyncBufferSize, syncRecorder)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Infof("Closing AsyncMetricRecorder...")
			asyncRecorder.Close()
			return nil
		},
	})
	return asyncRecorder
}
