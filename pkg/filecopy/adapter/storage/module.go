package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// Module provides the StorageConnectionResolver. Concrete providers come from the local and gcs modules.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewConnectionResolver,
		fx.As(new(StorageConnectionResolver)),
	)),
	fx.Invoke(func(lc fx.Lifecycle, resolver StorageConnectionResolver) {
		closer, ok := resolver.(interface{ CloseAll() error })
		if !ok {
			return
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				logger.Debugf("Closing storage connections.")
				return closer.CloseAll()
			},
		})
	}),
)
