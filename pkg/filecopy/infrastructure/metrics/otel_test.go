package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
)

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestOtelMetricRecorder(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	r, err := NewOtelMetricRecorderWithReader(reader, "surfin-filecopy")
	require.NoError(t, err)
	defer r.Shutdown(ctx)

	r.RecordPoll(ctx, "filecopy-binary", 3)
	r.RecordMessageCopied(ctx, "filecopy-binary", "bytes", 42)
	r.RecordMessageFailed(ctx, "filecopy-binary", "sink")
	r.RecordDuration(ctx, "poll", 10*time.Millisecond, map[string]string{"pipeline_id": "filecopy-binary"})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(1), sumOf(t, rm, "filecopy.polls"))
	assert.Equal(t, int64(3), sumOf(t, rm, "filecopy.polled_files"))
	assert.Equal(t, int64(42), sumOf(t, rm, "filecopy.bytes.copied"))
	assert.Equal(t, int64(1), sumOf(t, rm, "filecopy.files.failed"))
}

func TestOpenTelemetryTracer_Spans(t *testing.T) {
	ctx := context.Background()
	sr := tracetest.NewSpanRecorder()
	tracer := NewOpenTelemetryTracerWithOptions("surfin-filecopy", sdktrace.WithSpanProcessor(sr))
	defer tracer.Shutdown(ctx)

	pctx, endPipeline := tracer.StartPipelineSpan(ctx, "filecopy-binary", "run-1")
	mctx, endMessage := tracer.StartMessageSpan(pctx, model.NewFileMessage("filecopy-binary", "run-1", "input", "sample.bin", 3, time.Now()))
	tracer.RecordEvent(mctx, "copied", map[string]interface{}{"bytes": int64(3), "target": "output"})
	tracer.RecordError(mctx, "sink", errors.New("disk full"))
	endMessage()
	endPipeline()

	ended := sr.Ended()
	require.Len(t, ended, 2)
	msgSpan, pipelineSpan := ended[0], ended[1]
	assert.Equal(t, "copy sample.bin", msgSpan.Name())
	assert.Equal(t, "pipeline filecopy-binary", pipelineSpan.Name())
	assert.Equal(t, pipelineSpan.SpanContext().SpanID(), msgSpan.Parent().SpanID())
	assert.Equal(t, codes.Error, msgSpan.Status().Code)

	var names []string
	for _, ev := range msgSpan.Events() {
		names = append(names, ev.Name)
	}
	assert.Contains(t, names, "copied")
	assert.Contains(t, names, "exception")
}

func TestNewTraceExporter_UnsupportedProtocol(t *testing.T) {
	_, err := newTraceExporter(context.Background(), config.TracingConfig{Protocol: "udp"})
	assert.Error(t, err)
	_, err = newMetricExporter(context.Background(), config.MetricsConfig{Protocol: "udp"})
	assert.Error(t, err)
}
