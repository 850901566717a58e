package sql_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database"
	dbconfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/config"
	gormadapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/gorm"
	coreAdapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/adapter"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	sqlrepo "github.com/tigerroll/surfin-filecopy/pkg/filecopy/infrastructure/repository/sql"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
)

// singleConnectionResolver always resolves to the same connection.
type singleConnectionResolver struct {
	conn database.DBConnection
}

func (r *singleConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.conn, nil
}

func (r *singleConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	return r.conn, nil
}

func setupGormMock(t *testing.T) (sqlmock.Sqlmock, *sqlrepo.SQLCopyHistoryRepository) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	conn, err := gormadapter.NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: "mysql"}, "history")
	require.NoError(t, err)

	t.Cleanup(func() {
		mock.ExpectClose()
		_ = sqlDB.Close()
	})
	return mock, sqlrepo.NewSQLCopyHistoryRepository(&singleConnectionResolver{conn: conn}, "history")
}

func TestSQLCopyHistoryRepository_IsCopied(t *testing.T) {
	mock, repo := setupGormMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `filecopy_history` WHERE pipeline_id = ? AND fingerprint = ? AND status = ?")).
		WithArgs("filecopy-binary", "abc", "COPIED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	copied, err := repo.IsCopied(context.Background(), "filecopy-binary", "abc")
	require.NoError(t, err)
	assert.True(t, copied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCopyHistoryRepository_SaveCopyRecord(t *testing.T) {
	mock, repo := setupGormMock(t)

	msg := model.NewFileMessage("filecopy-binary", "run-1", "input", "sample.bin", 3, time.Unix(100, 0))
	record := model.NewCopyRecord(msg, "output", model.CopyStatusCopied, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `filecopy_history`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveCopyRecord(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCopyHistoryRepository_FindByPipeline(t *testing.T) {
	mock, repo := setupGormMock(t)
	copiedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "pipeline_id", "run_id", "source_ref", "object_name", "target_ref", "fingerprint", "size", "mode", "status", "error", "copied_at"}).
		AddRow("r1", "filecopy-binary", "run-1", "input", "sample.bin", "output", "abc", 3, "bytes", "COPIED", "", copiedAt)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `filecopy_history` WHERE pipeline_id = ? ORDER BY copied_at ASC")).
		WithArgs("filecopy-binary").
		WillReturnRows(rows)

	records, err := repo.FindByPipeline(context.Background(), "filecopy-binary")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "sample.bin", records[0].ObjectName)
	assert.Equal(t, model.CopyStatusCopied, records[0].Status)
	assert.Equal(t, int64(3), records[0].Size)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCopyHistoryRepository_QueryErrorIsRetryable(t *testing.T) {
	mock, repo := setupGormMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `filecopy_history`")).
		WillReturnError(assert.AnError)

	_, err := repo.IsCopied(context.Background(), "filecopy-binary", "abc")
	require.Error(t, err)
	assert.True(t, exception.IsTemporary(err))
	assert.ErrorIs(t, err, assert.AnError)
}
