// Package local provides the Fx module for the local storage adapter.
package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
)

// Module is the Fx module for the local storage adapter.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.ResultTags(storageAdapter.StorageProviderGroup),
	)),
)
