// Package adapter holds the contracts shared by every resource adapter (storage, database).
package adapter

import (
	"context"
)

// ResourceConnection represents a generic connection to any resource (e.g., database, storage).
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the type of the resource (e.g., "local", "gcs", "sqlite").
	Type() string
	// Name returns the connection name (e.g., "input", "output", "history").
	Name() string
}

// ResourceConnectionResolver resolves a named connection from configuration.
type ResourceConnectionResolver interface {
	ResolveConnection(ctx context.Context, name string) (ResourceConnection, error)
}
