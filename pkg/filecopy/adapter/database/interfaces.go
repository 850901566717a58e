// Package database defines the contracts of database connections used by the copy history store.
package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/config"
	coreAdapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/adapter"
)

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection // Embeds Type(), Name(), Close()

	// GetDB returns the gorm session bound to this connection.
	GetDB() *gorm.DB
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// RefreshConnection pings the connection pool.
	RefreshConnection(ctx context.Context) error
}

// DBProvider provides database connections of one type based on configuration.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "sqlite").
	Type() string
	// ForceReconnect closes and re-establishes the named connection.
	ForceReconnect(name string) (DBConnection, error)
}

// DBConnectionResolver resolves a named database connection.
type DBConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProviderGroup is an Fx tag used to group all DBProvider implementations.
const DBProviderGroup = `group:"db_providers"`
