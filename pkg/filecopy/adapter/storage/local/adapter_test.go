package local_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
	storageConfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage/config"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage/local"
	coreConfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
)

func newAdapter(t *testing.T) (storageAdapter.StorageConnection, string) {
	t.Helper()
	dir := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BaseDir: dir}, "test")
	require.NoError(t, err)
	return conn, dir
}

func TestNewLocalAdapter_RequiresExistingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")
	_, err := local.NewLocalAdapter(storageConfig.StorageConfig{BaseDir: missing}, "input")
	require.Error(t, err)
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr), "adapter must not create its base directory")

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = local.NewLocalAdapter(storageConfig.StorageConfig{BaseDir: file}, "input")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	_, err = local.NewLocalAdapter(storageConfig.StorageConfig{}, "input")
	require.Error(t, err)
}

func TestLocalAdapter_UploadDownloadStat(t *testing.T) {
	conn, dir := newAdapter(t)
	ctx := context.Background()
	payload := []byte{0x00, 0xff, 0x10, 'a', '\n'}

	require.NoError(t, conn.Upload(ctx, "", "nested/sample.bin", bytes.NewReader(payload), "application/octet-stream"))

	onDisk, err := os.ReadFile(filepath.Join(dir, "nested", "sample.bin"))
	require.NoError(t, err)
	assert.Equal(t, payload, onDisk)

	rc, err := conn.Download(ctx, "", "nested/sample.bin")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	info, err := conn.Stat(ctx, "", "nested/sample.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), info.Size)

	_, err = conn.Stat(ctx, "", "nope.bin")
	assert.ErrorIs(t, err, storageAdapter.ErrObjectNotFound)

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestLocalAdapter_UploadReplacesExisting(t *testing.T) {
	conn, dir := newAdapter(t)
	ctx := context.Background()
	require.NoError(t, conn.Upload(ctx, "", "a.txt", strings.NewReader("first"), ""))
	require.NoError(t, conn.Upload(ctx, "", "a.txt", strings.NewReader("second"), ""))
	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestLocalAdapter_ListObjects(t *testing.T) {
	conn, dir := newAdapter(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), []byte("aa"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.txt"), []byte("c"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".filecopy-123.tmp"), []byte("partial"), 0o644))

	var names []string
	err := conn.ListObjects(context.Background(), "", "", func(info storageAdapter.ObjectInfo) error {
		names = append(names, info.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.bin", "b.txt", "sub/c.txt"}, names)

	names = nil
	err = conn.ListObjects(context.Background(), "", "sub/", func(info storageAdapter.ObjectInfo) error {
		names = append(names, info.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sub/c.txt"}, names)
}

func TestLocalAdapter_RejectsEscapingPaths(t *testing.T) {
	conn, _ := newAdapter(t)
	err := conn.Upload(context.Background(), "", "../escape.txt", strings.NewReader("x"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside of BaseDir")
}

func TestLocalAdapter_DeleteObject(t *testing.T) {
	conn, dir := newAdapter(t)
	path := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.NoError(t, conn.DeleteObject(context.Background(), "", "gone.txt"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, conn.DeleteObject(context.Background(), "", "gone.txt"))
}

func TestLocalProvider_UsesNamedDirectory(t *testing.T) {
	input := t.TempDir()
	cfg := coreConfig.NewConfig()
	cfg.FileCopy.Directories.Input = input
	cfg.FileCopy.AdapterConfigs = map[string]interface{}{
		"storage": map[string]interface{}{
			"input": map[string]interface{}{"type": "local", "directory": "input"},
			"gcs":   map[string]interface{}{"type": "gcs", "bucket_name": "b"},
		},
	}

	provider := local.NewLocalProvider(cfg)
	assert.Equal(t, local.ProviderType, provider.Type())

	conn, err := provider.GetConnection("input")
	require.NoError(t, err)
	require.NoError(t, conn.Upload(context.Background(), "", "x.txt", strings.NewReader("x"), ""))
	_, err = os.Stat(filepath.Join(input, "x.txt"))
	assert.NoError(t, err)

	again, err := provider.GetConnection("input")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	_, err = provider.GetConnection("gcs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")

	assert.NoError(t, provider.CloseAll())
}
