// Package local provides a local file system implementation of the storage adapter interfaces.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	storageAdapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
	storageConfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage/config"
	coreConfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

const (
	// ProviderType defines the type identifier for this local storage provider.
	ProviderType = "local"

	tempPrefix = ".filecopy-"
	tempSuffix = ".tmp"
)

// localAdapter implements storage.StorageConnection for a directory on the local file system.
type localAdapter struct {
	cfg     storageConfig.StorageConfig
	name    string
	baseDir string
}

var _ storageAdapter.StorageConnection = (*localAdapter)(nil)

// NewLocalAdapter creates a new localAdapter rooted at cfg.BaseDir.
// The directory must already exist; creating it is the job of directory preparation.
func NewLocalAdapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("local storage adapter '%s': BaseDir must be specified in configuration", name)
	}
	absBaseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("local storage adapter '%s': failed to get absolute path for BaseDir '%s': %w", name, cfg.BaseDir, err)
	}
	info, err := os.Stat(absBaseDir)
	if err != nil {
		return nil, fmt.Errorf("local storage adapter '%s': failed to stat BaseDir '%s': %w", name, cfg.BaseDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local storage adapter '%s': BaseDir '%s' is not a directory", name, cfg.BaseDir)
	}

	return &localAdapter{cfg: cfg, name: name, baseDir: absBaseDir}, nil
}

// Close does nothing for the local file system adapter as it holds no special resources.
func (a *localAdapter) Close() error {
	logger.Debugf("Local storage adapter '%s' closed.", a.name)
	return nil
}

// Type returns the type of the adapter, which is "local".
func (a *localAdapter) Type() string {
	return ProviderType
}

// Name returns the name of this connection.
func (a *localAdapter) Name() string {
	return a.name
}

// Upload writes data to a temporary file next to the target and renames it into place,
// so readers never observe a partially written file.
func (a *localAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return fmt.Errorf("failed to resolve path for upload: %w", err)
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("failed to create temporary file in '%s': %w", dir, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, &contextReader{ctx: ctx, r: data}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data to file '%s': %w", fullPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file for '%s': %w", fullPath, err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return fmt.Errorf("failed to move temporary file into '%s': %w", fullPath, err)
	}
	committed = true

	logger.Debugf("Uploaded data to '%s' (local adapter '%s').", fullPath, a.name)
	return nil
}

// Download opens the file for reading. The returned io.ReadCloser must be closed by the caller.
func (a *localAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path for download: %w", err)
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file '%s': %w", fullPath, err)
	}
	logger.Debugf("Opened '%s' for download (local adapter '%s').", fullPath, a.name)
	return file, nil
}

// Stat returns the metadata of a regular file.
func (a *localAdapter) Stat(ctx context.Context, bucket, objectName string) (storageAdapter.ObjectInfo, error) {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return storageAdapter.ObjectInfo{}, fmt.Errorf("failed to resolve path for stat: %w", err)
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storageAdapter.ObjectInfo{}, fmt.Errorf("'%s': %w", objectName, storageAdapter.ErrObjectNotFound)
		}
		return storageAdapter.ObjectInfo{}, fmt.Errorf("failed to stat '%s': %w", fullPath, err)
	}
	if info.IsDir() {
		return storageAdapter.ObjectInfo{}, fmt.Errorf("'%s' is a directory: %w", objectName, storageAdapter.ErrObjectNotFound)
	}
	return storageAdapter.ObjectInfo{Name: objectName, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// ListObjects walks the directory tree in lexical order and calls fn for each regular file
// whose relative name starts with prefix. In-flight upload files are skipped.
func (a *localAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(storageAdapter.ObjectInfo) error) error {
	basePath, err := a.resolvePath(bucket, "")
	if err != nil {
		return fmt.Errorf("failed to resolve base path for listing: %w", err)
	}

	err = filepath.WalkDir(basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if isTempFile(d.Name()) {
			return nil
		}

		objectName, err := filepath.Rel(basePath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for '%s' from '%s': %w", path, basePath, err)
		}
		objectName = filepath.ToSlash(objectName)
		if prefix != "" && !strings.HasPrefix(objectName, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil // removed while walking
			}
			return err
		}
		return fn(storageAdapter.ObjectInfo{Name: objectName, Size: info.Size(), ModTime: info.ModTime()})
	})
	if err != nil {
		return fmt.Errorf("failed to list objects in '%s' with prefix '%s': %w", basePath, prefix, err)
	}
	return nil
}

// DeleteObject deletes the file. A missing file is logged and ignored.
func (a *localAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return fmt.Errorf("failed to resolve path for delete: %w", err)
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("Attempted to delete non-existent object '%s' (local adapter '%s').", fullPath, a.name)
			return nil
		}
		return fmt.Errorf("failed to delete file '%s': %w", fullPath, err)
	}
	logger.Debugf("Deleted object '%s' (local adapter '%s').", fullPath, a.name)
	return nil
}

// resolvePath resolves the full path of an object relative to the BaseDir.
// Paths that would escape the BaseDir are rejected.
func (a *localAdapter) resolvePath(bucket, objectName string) (string, error) {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	fullPath := filepath.Join(a.baseDir, bucket, filepath.FromSlash(objectName))

	rel, err := filepath.Rel(a.baseDir, fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to relate '%s' to BaseDir '%s': %w", fullPath, a.baseDir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("resolved path '%s' is outside of BaseDir '%s'", fullPath, a.baseDir)
	}
	return fullPath, nil
}

func isTempFile(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, tempSuffix)
}

// contextReader stops a copy once ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// NewLocalProvider creates the StorageProvider for "local" connections.
// A connection without base_dir takes the path of its named directory from filecopy.directories.
func NewLocalProvider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewBaseProvider(cfg, ProviderType, func(_ context.Context, sc storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
		if sc.BaseDir == "" && sc.Directory != "" {
			dir, ok := cfg.FileCopy.Directories.ByName(sc.Directory)
			if !ok {
				return nil, fmt.Errorf("local storage adapter '%s': unknown directory '%s'", name, sc.Directory)
			}
			sc.BaseDir = dir
		}
		return NewLocalAdapter(sc, name)
	})
}
