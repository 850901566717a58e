// Package repository defines persistence contracts for the copy history.
package repository

import (
	"context"

	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
)

// CopyHistoryRepository records which file versions a pipeline already copied.
// It backs the accept-once filter of the directory source.
type CopyHistoryRepository interface {
	// IsCopied reports whether a record with status COPIED exists for the pipeline and fingerprint.
	IsCopied(ctx context.Context, pipelineID, fingerprint string) (bool, error)
	// SaveCopyRecord persists one record.
	SaveCopyRecord(ctx context.Context, record *model.CopyRecord) error
	// FindByPipeline returns the records of a pipeline ordered by CopiedAt, newest last.
	FindByPipeline(ctx context.Context, pipelineID string) ([]*model.CopyRecord, error)
}
