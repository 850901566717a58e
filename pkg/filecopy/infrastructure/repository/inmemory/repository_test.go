package inmemory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/infrastructure/repository/inmemory"
)

func TestInMemoryCopyHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryCopyHistoryRepository()

	msg := model.NewFileMessage("filecopy-binary", "run-1", "input", "sample.bin", 3, time.Unix(100, 0))
	copied, err := repo.IsCopied(ctx, "filecopy-binary", msg.Fingerprint())
	require.NoError(t, err)
	assert.False(t, copied)

	failed := model.NewCopyRecord(msg, "output", model.CopyStatusFailed, assert.AnError)
	failed.CopiedAt = time.Unix(200, 0)
	require.NoError(t, repo.SaveCopyRecord(ctx, failed))
	copied, _ = repo.IsCopied(ctx, "filecopy-binary", msg.Fingerprint())
	assert.False(t, copied, "failed copies are retried")

	ok := model.NewCopyRecord(msg, "output", model.CopyStatusCopied, nil)
	ok.CopiedAt = time.Unix(300, 0)
	require.NoError(t, repo.SaveCopyRecord(ctx, ok))
	copied, _ = repo.IsCopied(ctx, "filecopy-binary", msg.Fingerprint())
	assert.True(t, copied)

	copied, _ = repo.IsCopied(ctx, "other-pipeline", msg.Fingerprint())
	assert.False(t, copied)

	records, err := repo.FindByPipeline(ctx, "filecopy-binary")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.CopyStatusFailed, records[0].Status)
	assert.Equal(t, assert.AnError.Error(), records[0].Error)
	assert.Equal(t, model.CopyStatusCopied, records[1].Status)
}
