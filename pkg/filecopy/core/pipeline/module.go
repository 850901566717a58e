package pipeline

import (
	"go.uber.org/fx"

	pipelinedef "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config/pipeline"
)

// Module provides the component Registry, the definition resolver and the Bootstrapper.
// Component modules register their builders on *Registry with fx.Invoke.
var Module = fx.Options(
	fx.Provide(NewRegistry),
	fx.Provide(pipelinedef.NewResourceResolver),
	fx.Provide(fx.Annotate(
		NewBootstrapper,
		fx.As(new(Bootstrapper)),
	)),
)
