// Package storage defines the common interfaces for storage adapters.
// Sources and sinks reach files through these interfaces, so a pipeline can
// copy between the local file system and a GCS bucket in any direction.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	coreAdapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/adapter"
)

// ErrObjectNotFound is returned by Stat when the object does not exist.
var ErrObjectNotFound = errors.New("storage object not found")

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	// Name is relative to the connection root and uses '/' separators.
	Name    string
	Size    int64
	ModTime time.Time
}

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload writes data to objectName. An existing object is replaced.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens objectName for reading. The caller closes the returned reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// Stat returns the object's metadata or ErrObjectNotFound.
	Stat(ctx context.Context, bucket, objectName string) (ObjectInfo, error)
	// ListObjects calls fn for every object under prefix in lexical order.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(ObjectInfo) error) error
	// DeleteObject deletes the object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection represents a named storage connection.
type StorageConnection interface {
	coreAdapter.ResourceConnection // Inherits Close(), Type(), Name()
	StorageExecutor
}

// StorageProvider manages the connections of one storage type.
type StorageProvider interface {
	// GetConnection retrieves a StorageConnection with the specified name, creating it on first use.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the storage type handled by this provider (e.g., "local", "gcs").
	Type() string
}

// StorageConnectionResolver resolves a named connection to the provider of its configured type.
type StorageConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}

// StorageProviderGroup is the Fx group collecting every StorageProvider.
const StorageProviderGroup = `group:"storage_providers"`
