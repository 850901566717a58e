package logging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
)

func TestLoggingListener_Callbacks(t *testing.T) {
	l := NewLoggingListener()
	ctx := context.Background()
	msg := model.NewFileMessage("p1", "run", "input", "a.bin", 1, time.Now())
	stats := &model.PipelineStats{PipelineID: "p1", RunID: "run", Status: model.PipelineStatusCompleted}

	assert.NotPanics(t, func() {
		l.BeforePipeline(ctx, stats)
		l.OnPoll(ctx, "p1", 1)
		l.OnMessageCopied(ctx, msg, &model.CopyRecord{TargetRef: "output", Size: 1})
		l.OnMessageSkipped(ctx, msg, &model.CopyRecord{TargetRef: "output"})
		l.OnMessageFailed(ctx, msg, errors.New("boom"))
		l.AfterPipeline(ctx, stats)
	})
}

func TestRegisterLoggingListener(t *testing.T) {
	registry := pipeline.NewRegistry()
	RegisterLoggingListener(registry)
	assert.Equal(t, []string{ListenerRef}, registry.Refs()["listener"])
}
