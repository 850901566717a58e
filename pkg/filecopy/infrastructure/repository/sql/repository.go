// Package sql provides the gorm-backed copy history.
package sql

import (
	"context"
	"fmt"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/repository"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
)

const moduleName = "repository"

// SQLCopyHistoryRepository stores copy records in the filecopy_history table.
// The connection is resolved per call so a dropped connection is re-established by the resolver.
type SQLCopyHistoryRepository struct {
	resolver database.DBConnectionResolver
	dbName   string
}

var _ repository.CopyHistoryRepository = (*SQLCopyHistoryRepository)(nil)

// NewSQLCopyHistoryRepository creates a repository on the named database connection.
func NewSQLCopyHistoryRepository(resolver database.DBConnectionResolver, dbName string) *SQLCopyHistoryRepository {
	return &SQLCopyHistoryRepository{resolver: resolver, dbName: dbName}
}

func (r *SQLCopyHistoryRepository) conn(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.resolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve history database '%s'", r.dbName), err, false, true)
	}
	return conn, nil
}

func (r *SQLCopyHistoryRepository) IsCopied(ctx context.Context, pipelineID, fingerprint string) (bool, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	err = conn.GetDB().WithContext(ctx).
		Model(&model.CopyRecord{}).
		Where("pipeline_id = ? AND fingerprint = ? AND status = ?", pipelineID, fingerprint, model.CopyStatusCopied).
		Count(&count).Error
	if err != nil {
		return false, exception.NewBatchError(moduleName, "failed to query copy history", err, false, true)
	}
	return count > 0, nil
}

func (r *SQLCopyHistoryRepository) SaveCopyRecord(ctx context.Context, record *model.CopyRecord) error {
	conn, err := r.conn(ctx)
	if err != nil {
		return err
	}
	if err := conn.GetDB().WithContext(ctx).Create(record).Error; err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to save copy record for '%s'", record.ObjectName), err, false, true)
	}
	return nil
}

func (r *SQLCopyHistoryRepository) FindByPipeline(ctx context.Context, pipelineID string) ([]*model.CopyRecord, error) {
	conn, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	var records []*model.CopyRecord
	err = conn.GetDB().WithContext(ctx).
		Where("pipeline_id = ?", pipelineID).
		Order("copied_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load copy history", err, false, true)
	}
	return records, nil
}
