// Package postgres provides a gorm DBProvider implementation for PostgreSQL databases.
package postgres

import (
	"fmt"

	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database"
	dbconfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/config"
	gormadapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/gorm"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
)

// ProviderType is the database type handled by this package.
const ProviderType = "postgres"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds the key/value DSN expected by gorm.io/driver/postgres.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
}

// NewProvider creates a new PostgreSQL DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, ProviderType)
}

// Module exports the PostgreSQL DBProvider for dependency injection.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(database.DBProviderGroup),
	)),
)
