// Package mysql provides a gorm DBProvider implementation for MySQL databases.
package mysql

import (
	"fmt"

	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database"
	dbconfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/config"
	gormadapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/gorm"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
)

// ProviderType is the database type handled by this package.
const ProviderType = "mysql"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds the DSN expected by gorm.io/driver/mysql:
// user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
func ConnectionString(c dbconfig.DatabaseConfig) string {
	var authPart string
	if c.User != "" {
		authPart = c.User
		if c.Password != "" {
			authPart = fmt.Sprintf("%s:%s", c.User, c.Password)
		}
		authPart += "@"
	}
	return fmt.Sprintf("%stcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		authPart, c.Host, c.Port, c.Database)
}

// NewProvider creates a new MySQL DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, ProviderType)
}

// Module exports the MySQL DBProvider for dependency injection.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(database.DBProviderGroup),
	)),
)
