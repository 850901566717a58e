package source

import (
	"go.uber.org/fx"

	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// RegisterSourceBuilders registers the sources with the pipeline Registry.
func RegisterSourceBuilders(registry *pipeline.Registry) {
	registry.RegisterSource(DirectorySourceRef, NewDirectorySourceBuilder())
	logger.Debugf("Source components (%s) were registered.", DirectorySourceRef)
}

// Module registers the pipeline sources.
var Module = fx.Options(
	fx.Invoke(RegisterSourceBuilders),
)
