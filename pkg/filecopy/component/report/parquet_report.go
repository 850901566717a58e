// Package report writes a per-run parquet report of every file a pipeline handled.
package report

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// ParquetReportListenerRef is the reference name of the parquet report listener.
const ParquetReportListenerRef = "parquetReportListener"

// ParquetReportConfig holds the properties of the parquet report listener.
type ParquetReportConfig struct {
	// StorageRef is the storage connection the report is uploaded to.
	StorageRef string `yaml:"storage_ref"`
	// OutputBaseDir is the directory within the storage connection that receives the reports.
	OutputBaseDir string `yaml:"output_base_dir"`
	// CompressionType is "SNAPPY", "GZIP" or "NONE".
	CompressionType string `yaml:"compression_type"`
}

// reportRow is one line of the report.
type reportRow struct {
	RunID       string `parquet:"name=run_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	PipelineID  string `parquet:"name=pipeline_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	SourceRef   string `parquet:"name=source_ref,type=BYTE_ARRAY,convertedtype=UTF8"`
	ObjectName  string `parquet:"name=object_name,type=BYTE_ARRAY,convertedtype=UTF8"`
	TargetRef   string `parquet:"name=target_ref,type=BYTE_ARRAY,convertedtype=UTF8"`
	Mode        string `parquet:"name=mode,type=BYTE_ARRAY,convertedtype=UTF8"`
	Status      string `parquet:"name=status,type=BYTE_ARRAY,convertedtype=UTF8"`
	Size        int64  `parquet:"name=size,type=INT64"`
	Error       string `parquet:"name=error,type=BYTE_ARRAY,convertedtype=UTF8"`
	Fingerprint string `parquet:"name=fingerprint,type=BYTE_ARRAY,convertedtype=UTF8"`
	CopiedAt    int64  `parquet:"name=copied_at,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
}

func newReportRow(rec *model.CopyRecord) reportRow {
	return reportRow{
		RunID:       rec.RunID,
		PipelineID:  rec.PipelineID,
		SourceRef:   rec.SourceRef,
		ObjectName:  rec.ObjectName,
		TargetRef:   rec.TargetRef,
		Mode:        rec.Mode,
		Status:      string(rec.Status),
		Size:        rec.Size,
		Error:       rec.Error,
		Fingerprint: rec.Fingerprint,
		CopiedAt:    rec.CopiedAt.UnixMilli(),
	}
}

// ParquetReportListener buffers the outcome of every file and uploads them as one parquet file
// when the run ends.
type ParquetReportListener struct {
	port.BaseListener
	config *ParquetReportConfig
	conn   storage.StorageConnection
	codec  parquet.CompressionCodec
	rows   []reportRow
}

// NewParquetReportListener creates a listener that uploads its report through conn.
func NewParquetReportListener(cfg ParquetReportConfig, conn storage.StorageConnection) (*ParquetReportListener, error) {
	if cfg.OutputBaseDir == "" {
		return nil, exception.NewBatchError("report", "ParquetReportListener requires 'output_base_dir' property.", nil, false, false)
	}
	if cfg.CompressionType == "" {
		cfg.CompressionType = "SNAPPY"
	}
	codec, err := getCompressionCodec(cfg.CompressionType)
	if err != nil {
		return nil, exception.NewBatchError("report", fmt.Sprintf("Invalid compression type '%s' for ParquetReportListener", cfg.CompressionType), err, false, false)
	}
	return &ParquetReportListener{config: &cfg, conn: conn, codec: codec}, nil
}

func (l *ParquetReportListener) BeforePipeline(ctx context.Context, stats *model.PipelineStats) {
	l.rows = nil
}

func (l *ParquetReportListener) OnMessageCopied(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord) {
	l.rows = append(l.rows, newReportRow(record))
}

func (l *ParquetReportListener) OnMessageSkipped(ctx context.Context, msg *model.FileMessage, record *model.CopyRecord) {
	l.rows = append(l.rows, newReportRow(record))
}

func (l *ParquetReportListener) OnMessageFailed(ctx context.Context, msg *model.FileMessage, err error) {
	l.rows = append(l.rows, newReportRow(model.NewCopyRecord(msg, "", model.CopyStatusFailed, err)))
}

// AfterPipeline uploads the report. Failures are logged; they never change the run's outcome.
func (l *ParquetReportListener) AfterPipeline(ctx context.Context, stats *model.PipelineStats) {
	if _, err := l.Flush(ctx, stats); err != nil {
		logger.Errorf("ParquetReportListener: failed to write report for run '%s': %v", stats.RunID, err)
	}
}

// Flush writes the buffered rows and returns the object name of the uploaded report.
// An empty buffer uploads nothing and returns "".
func (l *ParquetReportListener) Flush(ctx context.Context, stats *model.PipelineStats) (string, error) {
	if len(l.rows) == 0 {
		logger.Infof("ParquetReportListener: No records for run '%s', skipping report generation.", stats.RunID)
		return "", nil
	}
	rows := l.rows
	l.rows = nil

	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(reportRow), int64(len(rows)))
	if err != nil {
		return "", exception.NewBatchError("report", "Failed to create Parquet writer", err, false, false)
	}
	pw.CompressionType = l.codec

	var multiErr error
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError("report",
				fmt.Sprintf("Failed to write report row for '%s'", row.ObjectName), err, false, false))
		}
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
				multiErr = multierror.Append(multiErr, exception.NewBatchError("report", err.Error(), err, false, false))
			}
		}()
		if err := pw.WriteStop(); err != nil {
			multiErr = multierror.Append(multiErr, exception.NewBatchError("report", "Failed to stop Parquet writer", err, false, false))
		}
	}()
	if multiErr != nil {
		return "", multiErr
	}

	objectName := reportObjectName(l.config.OutputBaseDir, stats)
	size := buf.Len()
	if err := l.conn.Upload(ctx, "", objectName, buf, "application/octet-stream"); err != nil {
		return "", exception.NewBatchError("report", fmt.Sprintf("Failed to upload report to '%s'", objectName), err, false, false)
	}
	logger.Infof("ParquetReportListener: Uploaded report with %d rows (%d bytes) to %s/%s", len(rows), size, l.conn.Name(), objectName)
	return objectName, nil
}

// reportObjectName returns a Hive-style path: <base>/dt=YYYY-MM-DD/report_<runID>.parquet.
func reportObjectName(baseDir string, stats *model.PipelineStats) string {
	day := stats.EndTime
	if day.IsZero() {
		day = stats.StartTime
	}
	return path.Join(baseDir, "dt="+day.Format("2006-01-02"), fmt.Sprintf("report_%s.parquet", stats.RunID))
}

func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

var _ port.PipelineListener = (*ParquetReportListener)(nil)
