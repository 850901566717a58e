package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database"
)

// Module provides the DBConnectionResolver and closes every connection on stop.
// Concrete providers come from the sqlite, mysql and postgres modules.
var Module = fx.Options(
	fx.Provide(NewGormDBConnectionResolver),
	fx.Provide(func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r }),
	fx.Invoke(func(lc fx.Lifecycle, r *GormDBConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return r.CloseAll()
			},
		})
	}),
)
