package directory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	directory "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/directory"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
)

func TestPrepare_CreatesAbsentDirectories(t *testing.T) {
	root := t.TempDir()
	layout := directory.Layout{
		Input:  filepath.Join(root, "nested", "input"),
		Output: filepath.Join(root, "nested", "output"),
		Extra:  []string{filepath.Join(root, "archive")},
	}

	prepared, err := directory.NewFilesystemPreparer().Prepare(layout)
	require.NoError(t, err)
	assert.Equal(t, layout.Input, prepared.Input())
	assert.Equal(t, layout.Output, prepared.Output())
	assert.Equal(t, []string{filepath.Join(root, "archive")}, prepared.Extra())

	for _, dir := range []string{layout.Input, layout.Output, layout.Extra[0]} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	}
}

func TestPrepare_IsIdempotent(t *testing.T) {
	root := t.TempDir()
	layout := directory.Layout{Input: filepath.Join(root, "input"), Output: filepath.Join(root, "output")}
	preparer := directory.NewFilesystemPreparer()

	_, err := preparer.Prepare(layout)
	require.NoError(t, err)
	sample := filepath.Join(layout.Input, "sample.bin")
	require.NoError(t, os.WriteFile(sample, []byte{0x00, 0x01, 0xff}, 0o644))

	_, err = preparer.Prepare(layout)
	require.NoError(t, err)

	data, err := os.ReadFile(sample)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0xff}, data)
}

func TestPrepare_BlockedPath(t *testing.T) {
	root := t.TempDir()
	blocked := filepath.Join(root, "output")
	require.NoError(t, os.WriteFile(blocked, []byte("not a directory"), 0o644))

	prepared, err := directory.NewFilesystemPreparer().Prepare(directory.Layout{
		Input:  filepath.Join(root, "input"),
		Output: blocked,
	})
	assert.Nil(t, prepared)
	require.Error(t, err)
	assert.True(t, exception.IsDirectoryPreparationFailure(err))
	assert.False(t, exception.IsTemporary(err))
	assert.Contains(t, err.Error(), blocked)
}

func TestPrepare_BlockedParent(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := directory.NewFilesystemPreparer().Prepare(directory.Layout{
		Input:  filepath.Join(file, "input"),
		Output: filepath.Join(root, "output"),
	})
	require.Error(t, err)
	assert.True(t, exception.IsDirectoryPreparationFailure(err))
}

func TestPrepare_MissingConfiguration(t *testing.T) {
	_, err := directory.NewFilesystemPreparer().Prepare(directory.Layout{Output: t.TempDir()})
	assert.True(t, exception.IsDirectoryPreparationFailure(err))
}

func TestLayoutFromConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.FileCopy.Directories.Input = "/data/in"
	cfg.FileCopy.Directories.Output = "/data/out"
	layout := directory.LayoutFromConfig(cfg)
	assert.Equal(t, "/data/in", layout.Input)
	assert.Equal(t, "/data/out", layout.Output)
	assert.Equal(t, os.FileMode(0o755), layout.Mode)
}
