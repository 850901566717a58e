package migration

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database"
	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// Params defines the dependencies of the startup migration.
type Params struct {
	fx.In
	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Resolver  database.DBConnectionResolver `optional:"true"`
}

// RunOnStart migrates the history database before the launcher starts.
func RunOnStart(p Params) {
	ref := p.Cfg.FileCopy.Infrastructure.HistoryDBRef
	if ref == "" || p.Cfg.FileCopy.Infrastructure.SkipMigrations || p.Resolver == nil {
		logger.Debugf("Skipping history migrations (history_db_ref='%s').", ref)
		return
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			conn, err := p.Resolver.ResolveDBConnection(ctx, ref)
			if err != nil {
				return err
			}
			return NewMigrator(conn).Up(ctx)
		},
	})
}

// Module registers the startup migration.
var Module = fx.Options(
	fx.Invoke(RunOnStart),
)
