package directory

import "go.uber.org/fx"

// Module provides the filesystem Preparer.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewFilesystemPreparer,
		fx.As(new(Preparer)),
	)),
)
