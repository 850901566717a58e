package pipeline

import (
	"context"
	"fmt"
	"sync"

	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// Handle controls a started pipeline.
type Handle struct {
	pipeline *Pipeline
	runID    string
	cancel   context.CancelFunc
	done     chan struct{}

	mu    sync.RWMutex
	stats model.PipelineStats
	err   error

	stopOnce sync.Once
	stopErr  error
}

func newHandle(p *Pipeline, runID string, cancel context.CancelFunc) *Handle {
	return &Handle{
		pipeline: p,
		runID:    runID,
		cancel:   cancel,
		done:     make(chan struct{}),
		stats: model.PipelineStats{
			RunID:      runID,
			PipelineID: p.id,
			Status:     model.PipelineStatusStarting,
		},
	}
}

// PipelineID returns the ID of the running pipeline.
func (h *Handle) PipelineID() string {
	return h.pipeline.id
}

// RunID returns the unique ID of this run.
func (h *Handle) RunID() string {
	return h.runID
}

// Once reports whether the pipeline completes on its own after a single poll.
func (h *Handle) Once() bool {
	return h.pipeline.trigger.IsOnce()
}

// Done is closed when the run loop has exited and listeners were notified.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the error that ended the run, if any. It is meaningful after Done is closed.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Stats returns a snapshot of the run statistics.
func (h *Handle) Stats() model.PipelineStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// Stop cancels the run, waits for the run loop to exit or ctx to expire, and
// closes every component holding resources. If ctx expires first, Stop returns
// the timeout and the components are closed once the run loop has exited.
// Only the first call has an effect; later calls return the first call's result.
func (h *Handle) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() {
		h.update(func(s *model.PipelineStats) {
			if !s.Status.IsFinished() {
				s.Status = model.PipelineStatusStopping
			}
		})
		h.cancel()

		select {
		case <-h.done:
			h.stopErr = h.closeComponents()
			logger.Infof("Pipeline '%s' stopped.", h.pipeline.id)
		case <-ctx.Done():
			logger.Warnf("Pipeline '%s' did not stop in time: %v", h.pipeline.id, ctx.Err())
			h.stopErr = fmt.Errorf("pipeline '%s' did not stop in time: %w", h.pipeline.id, ctx.Err())
			go func() {
				<-h.done
				_ = h.closeComponents()
				logger.Infof("Pipeline '%s' stopped after the stop deadline.", h.pipeline.id)
			}()
		}
	})
	return h.stopErr
}

func (h *Handle) closeComponents() error {
	err := closeAll(h.pipeline.closers())
	if err != nil {
		logger.Errorf("Failed to close components of pipeline '%s': %v", h.pipeline.id, err)
	}
	return err
}

func (h *Handle) update(fn func(*model.PipelineStats)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.stats)
}

func (h *Handle) setErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}
