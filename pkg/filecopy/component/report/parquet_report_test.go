package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage/local"
	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
)

func newResolver(t *testing.T, dir string) storage.StorageConnectionResolver {
	t.Helper()
	cfg := config.NewConfig()
	cfg.FileCopy.AdapterConfigs["storage"] = map[string]interface{}{
		"output": map[string]interface{}{"type": "local", "base_dir": dir},
	}
	return storage.NewConnectionResolver(storage.ResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
}

func TestParquetReportListener_WritesReport(t *testing.T) {
	dir := t.TempDir()
	builder := NewParquetReportListenerBuilder()
	built, err := builder(pipeline.Dependencies{Storage: newResolver(t, dir)}, map[string]string{
		"output_base_dir":  "reports",
		"compression_type": "gzip",
	})
	require.NoError(t, err)
	l := built.(*ParquetReportListener)

	ctx := context.Background()
	end := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	stats := &model.PipelineStats{PipelineID: "p1", RunID: "run-1", EndTime: end}

	msg := model.NewFileMessage("p1", "run-1", "input", "a.bin", 3, time.Now())
	l.BeforePipeline(ctx, stats)
	l.OnMessageCopied(ctx, msg, model.NewCopyRecord(msg, "output", model.CopyStatusCopied, nil))
	l.OnMessageSkipped(ctx, msg, model.NewCopyRecord(msg, "output", model.CopyStatusSkipped, nil))
	l.OnMessageFailed(ctx, msg, errors.New("boom"))

	objectName, err := l.Flush(ctx, stats)
	require.NoError(t, err)
	assert.Equal(t, "reports/dt=2026-03-14/report_run-1.parquet", objectName)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(objectName)))
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.True(t, bytes.HasPrefix(data, []byte("PAR1")))
	assert.True(t, bytes.HasSuffix(data, []byte("PAR1")))
	assert.Empty(t, l.rows)
}

func TestParquetReportListener_NothingToReport(t *testing.T) {
	dir := t.TempDir()
	conn, err := newResolver(t, dir).ResolveStorageConnection(context.Background(), "output")
	require.NoError(t, err)
	l, err := NewParquetReportListener(ParquetReportConfig{OutputBaseDir: "reports"}, conn)
	require.NoError(t, err)

	l.AfterPipeline(context.Background(), &model.PipelineStats{RunID: "run-1", EndTime: time.Now()})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewParquetReportListener_Validation(t *testing.T) {
	_, err := NewParquetReportListener(ParquetReportConfig{}, nil)
	assert.Error(t, err)

	_, err = NewParquetReportListener(ParquetReportConfig{OutputBaseDir: "r", CompressionType: "LZ4"}, nil)
	assert.Error(t, err)
}

func TestReportObjectName_FallsBackToStartTime(t *testing.T) {
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	name := reportObjectName("base", &model.PipelineStats{RunID: "x", StartTime: start})
	assert.Equal(t, "base/dt=2026-01-02/report_x.parquet", name)
}
