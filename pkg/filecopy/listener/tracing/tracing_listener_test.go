package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
)

type mockTracer struct {
	mock.Mock
}

func (m *mockTracer) StartPipelineSpan(ctx context.Context, pipelineID, runID string) (context.Context, func()) {
	return ctx, func() {}
}

func (m *mockTracer) StartPollSpan(ctx context.Context, pipelineID string) (context.Context, func()) {
	return ctx, func() {}
}

func (m *mockTracer) StartMessageSpan(ctx context.Context, msg *model.FileMessage) (context.Context, func()) {
	return ctx, func() {}
}

func (m *mockTracer) RecordError(ctx context.Context, module string, err error) {
	m.Called(module, err)
}

func (m *mockTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	m.Called(name, attributes)
}

func TestTracingListener_Events(t *testing.T) {
	tracer := &mockTracer{}
	l := NewTracingListener(tracer)
	ctx := context.Background()
	msg := model.NewFileMessage("p1", "run", "input", "a.txt", 4, time.Now())

	tracer.On("RecordEvent", "poll.completed", map[string]interface{}{"found": 2}).Once()
	tracer.On("RecordEvent", "file.copied", mock.MatchedBy(func(attrs map[string]interface{}) bool {
		return attrs["target"] == "output" && attrs["bytes"] == int64(4) && attrs["mode"] == "file"
	})).Once()
	tracer.On("RecordEvent", "file.skipped", map[string]interface{}{"target": "output"}).Once()

	l.OnPoll(ctx, "p1", 2)
	l.OnMessageCopied(ctx, msg, &model.CopyRecord{TargetRef: "output", Size: 4})
	l.OnMessageSkipped(ctx, msg, &model.CopyRecord{TargetRef: "output"})

	tracer.AssertExpectations(t)
}

func TestTracingListener_FailureUsesModule(t *testing.T) {
	tracer := &mockTracer{}
	l := NewTracingListener(tracer)
	msg := model.NewFileMessage("p1", "run", "input", "a.txt", 4, time.Now())

	sinkErr := exception.NewBatchError("sink", "write failed", nil, true, false)
	plainErr := errors.New("boom")
	tracer.On("RecordError", "sink", sinkErr).Once()
	tracer.On("RecordError", "pipeline", plainErr).Once()

	l.OnMessageFailed(context.Background(), msg, sinkErr)
	l.OnMessageFailed(context.Background(), msg, plainErr)

	tracer.AssertExpectations(t)
}

func TestRegisterTracingListener(t *testing.T) {
	registry := pipeline.NewRegistry()
	RegisterTracingListener(registry)

	refs := registry.Refs()
	require.NotNil(t, refs)
	assert.Equal(t, []string{ListenerRef}, refs["listener"])
}
