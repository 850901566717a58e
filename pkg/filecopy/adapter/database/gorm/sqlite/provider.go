// Package sqlite provides a gorm DBProvider implementation for SQLite databases.
package sqlite

import (
	"errors"

	"go.uber.org/fx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database"
	dbconfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/config"
	gormadapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/gorm"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
)

// ProviderType is the database type handled by this package.
const ProviderType = "sqlite"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the SQLite DSN, which is the database file path.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return c.Database
}

// NewProvider creates a new database.DBProvider for SQLite.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, ProviderType)
}

// Module exports the SQLite DBProvider for dependency injection.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(database.DBProviderGroup),
	)),
)
