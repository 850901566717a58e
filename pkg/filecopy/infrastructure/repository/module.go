// Package repository selects the copy history implementation from configuration.
package repository

import (
	"go.uber.org/fx"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database"
	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/repository"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/surfin-filecopy/pkg/filecopy/infrastructure/repository/sql"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// Params defines the dependencies for NewCopyHistoryRepository.
type Params struct {
	fx.In
	Cfg      *config.Config
	Resolver database.DBConnectionResolver `optional:"true"`
}

// NewCopyHistoryRepository returns the gorm repository when filecopy.infrastructure.history_db_ref
// names a database connection, and the in-memory one otherwise.
func NewCopyHistoryRepository(p Params) repository.CopyHistoryRepository {
	ref := p.Cfg.FileCopy.Infrastructure.HistoryDBRef
	if ref == "" || p.Resolver == nil {
		logger.Infof("Copy history: in-memory.")
		return inmemory.NewInMemoryCopyHistoryRepository()
	}
	logger.Infof("Copy history: database connection '%s'.", ref)
	return sqlrepo.NewSQLCopyHistoryRepository(p.Resolver, ref)
}

// Module provides the CopyHistoryRepository.
var Module = fx.Options(
	fx.Provide(NewCopyHistoryRepository),
)
