package logger

import "go.uber.org/fx"

// Module installs the fxevent adapter so that fx reports through this package.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
