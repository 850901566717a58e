// Package gcs provides a Google Cloud Storage implementation of the storage adapter interfaces.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
	storageConfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage/config"
	coreConfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// ProviderType defines the type identifier for the GCS storage provider.
const ProviderType = "gcs"

// gcsAdapter implements storage.StorageConnection on a GCS bucket.
// BaseDir, when set, is an object name prefix shared by every operation.
type gcsAdapter struct {
	cfg    storageConfig.StorageConfig
	name   string
	client *storage.Client
}

var _ storageAdapter.StorageConnection = (*gcsAdapter)(nil)

// ClientOptions builds the client options for cfg.
func ClientOptions(cfg storageConfig.StorageConfig) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
		if cfg.CredentialsFile == "" {
			opts = append(opts, option.WithoutAuthentication())
		}
	}
	return opts
}

// NewGCSAdapter opens a storage client for cfg.
func NewGCSAdapter(ctx context.Context, cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("gcs storage adapter '%s': bucket_name must be specified in configuration", name)
	}
	client, err := storage.NewClient(ctx, ClientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}
	return &gcsAdapter{cfg: cfg, name: name, client: client}, nil
}

// Close releases the underlying client.
func (a *gcsAdapter) Close() error {
	logger.Debugf("GCS storage adapter '%s' closed.", a.name)
	return a.client.Close()
}

// Type returns "gcs".
func (a *gcsAdapter) Type() string {
	return ProviderType
}

// Name returns the name of this connection.
func (a *gcsAdapter) Name() string {
	return a.name
}

func (a *gcsAdapter) bucket(bucket string) *storage.BucketHandle {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	return a.client.Bucket(bucket)
}

func (a *gcsAdapter) key(objectName string) string {
	if a.cfg.BaseDir == "" {
		return objectName
	}
	return path.Join(strings.Trim(a.cfg.BaseDir, "/"), objectName)
}

func (a *gcsAdapter) relative(key string) string {
	if a.cfg.BaseDir == "" {
		return key
	}
	return strings.TrimPrefix(key, strings.Trim(a.cfg.BaseDir, "/")+"/")
}

// Upload streams data into the object. GCS commits the object only when the writer closes.
func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	w := a.bucket(bucket).Object(a.key(objectName)).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object '%s' (gcs adapter '%s'): %w", objectName, a.name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to commit object '%s' (gcs adapter '%s'): %w", objectName, a.name, err)
	}
	logger.Debugf("Uploaded object '%s' (gcs adapter '%s').", objectName, a.name)
	return nil
}

// Download opens a reader on the object.
func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	r, err := a.bucket(bucket).Object(a.key(objectName)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("'%s': %w", objectName, storageAdapter.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to open object '%s' (gcs adapter '%s'): %w", objectName, a.name, err)
	}
	return r, nil
}

// Stat returns the object's size and update time.
func (a *gcsAdapter) Stat(ctx context.Context, bucket, objectName string) (storageAdapter.ObjectInfo, error) {
	attrs, err := a.bucket(bucket).Object(a.key(objectName)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return storageAdapter.ObjectInfo{}, fmt.Errorf("'%s': %w", objectName, storageAdapter.ErrObjectNotFound)
		}
		return storageAdapter.ObjectInfo{}, fmt.Errorf("failed to stat object '%s' (gcs adapter '%s'): %w", objectName, a.name, err)
	}
	return storageAdapter.ObjectInfo{Name: objectName, Size: attrs.Size, ModTime: attrs.Updated}, nil
}

// ListObjects iterates the objects under prefix. GCS returns them in lexical order.
func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(storageAdapter.ObjectInfo) error) error {
	query := &storage.Query{Prefix: a.key(prefix)}
	if prefix == "" && a.cfg.BaseDir != "" {
		query.Prefix = strings.Trim(a.cfg.BaseDir, "/") + "/"
	}
	it := a.bucket(bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list objects with prefix '%s' (gcs adapter '%s'): %w", prefix, a.name, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue // folder placeholder
		}
		if err := fn(storageAdapter.ObjectInfo{Name: a.relative(attrs.Name), Size: attrs.Size, ModTime: attrs.Updated}); err != nil {
			return err
		}
	}
}

// DeleteObject deletes the object. A missing object is logged and ignored.
func (a *gcsAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	err := a.bucket(bucket).Object(a.key(objectName)).Delete(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			logger.Warnf("Attempted to delete non-existent object '%s' (gcs adapter '%s').", objectName, a.name)
			return nil
		}
		return fmt.Errorf("failed to delete object '%s' (gcs adapter '%s'): %w", objectName, a.name, err)
	}
	logger.Debugf("Deleted object '%s' (gcs adapter '%s').", objectName, a.name)
	return nil
}

// NewGCSProvider creates the StorageProvider for "gcs" connections.
func NewGCSProvider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewBaseProvider(cfg, ProviderType, NewGCSAdapter)
}
