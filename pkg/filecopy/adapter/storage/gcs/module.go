package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
)

// Module is the Fx module for the GCS storage adapter.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGCSProvider,
		fx.ResultTags(storageAdapter.StorageProviderGroup),
	)),
)
