// Package migration applies the copy history schema with golang-migrate.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migrateDatabase "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// MigrationsTable is the bookkeeping table of golang-migrate.
const MigrationsTable = "filecopy_schema_migrations"

//go:embed sql
var migrationFS embed.FS

// Migrator applies schema migrations to one database connection.
type Migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
}

type migratorImpl struct {
	dbConn database.DBConnection
	dbType string
	source fs.FS
}

// NewMigrator creates a Migrator using the embedded history schema.
func NewMigrator(dbConn database.DBConnection) Migrator {
	return NewMigratorWithSource(dbConn, migrationFS)
}

// NewMigratorWithSource creates a Migrator reading sql/<dbType> from source.
func NewMigratorWithSource(dbConn database.DBConnection, source fs.FS) Migrator {
	return &migratorImpl{dbConn: dbConn, dbType: dbConn.Type(), source: source}
}

func (m *migratorImpl) databaseDriver(sqlDB *sql.DB) (migrateDatabase.Driver, error) {
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

func (m *migratorImpl) instance() (*migrate.Migrate, source.Driver, error) {
	sqlDB, err := m.dbConn.GetSQLDB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	path := "sql/" + m.dbType
	sourceDriver, err := iofs.New(m.source, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}
	dbDriver, err := m.databaseDriver(sqlDB)
	if err != nil {
		sourceDriver.Close()
		return nil, nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	mInstance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mInstance, sourceDriver, nil
}

func (m *migratorImpl) run(command string, step func(*migrate.Migrate) error) error {
	logger.Infof("Executing migration '%s' on '%s' (%s).", command, m.dbConn.Name(), m.dbType)

	mInstance, sourceDriver, err := m.instance()
	if err != nil {
		return err
	}
	// mInstance.Close would also close the *sql.DB shared with the history repository.
	defer func() {
		if srcErr := sourceDriver.Close(); srcErr != nil {
			logger.Debugf("Failed to close migration source: %v", srcErr)
		}
	}()

	if err := step(mInstance); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration '%s' failed (DB: %s): %w", command, m.dbType, err)
	}
	logger.Infof("Migration '%s' completed successfully.", command)
	return nil
}

// Up applies all pending migrations.
func (m *migratorImpl) Up(ctx context.Context) error {
	return m.run("up", func(mi *migrate.Migrate) error { return mi.Up() })
}

// Down reverts all migrations.
func (m *migratorImpl) Down(ctx context.Context) error {
	return m.run("down", func(mi *migrate.Migrate) error { return mi.Down() })
}
