package pipeline

import (
	"context"

	"go.uber.org/fx"

	storage "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	pipelinedef "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config/pipeline"
	directory "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/directory"
	repository "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/repository"
	metrics "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/metrics"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// Bootstrapper resolves a pipeline definition, builds the pipeline and starts it.
type Bootstrapper interface {
	// Bootstrap requires proof that the directories were prepared.
	// Resolution and build failures are ConfigurationResolutionFailures; the pipeline is not started.
	Bootstrap(ctx context.Context, prepared *directory.Prepared, resource string) (*Handle, error)
}

// DefaultBootstrapper is the Bootstrapper backed by a ResourceResolver and a Registry.
type DefaultBootstrapper struct {
	cfg            *config.Config
	resolver       pipelinedef.ResourceResolver
	registry       *Registry
	storage        storage.StorageConnectionResolver
	history        repository.CopyHistoryRepository
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// BootstrapperParams holds the dependencies of NewBootstrapper.
type BootstrapperParams struct {
	fx.In
	Cfg            *config.Config
	Resolver       pipelinedef.ResourceResolver
	Registry       *Registry
	Storage        storage.StorageConnectionResolver
	History        repository.CopyHistoryRepository
	MetricRecorder metrics.MetricRecorder
	Tracer         metrics.Tracer
}

// NewBootstrapper creates a DefaultBootstrapper.
func NewBootstrapper(p BootstrapperParams) *DefaultBootstrapper {
	return &DefaultBootstrapper{
		cfg:            p.Cfg,
		resolver:       p.Resolver,
		registry:       p.Registry,
		storage:        p.Storage,
		history:        p.History,
		metricRecorder: p.MetricRecorder,
		tracer:         p.Tracer,
	}
}

// Bootstrap implements Bootstrapper.
func (b *DefaultBootstrapper) Bootstrap(ctx context.Context, prepared *directory.Prepared, resource string) (*Handle, error) {
	if prepared == nil {
		return nil, exception.NewBatchError("pipeline", "Directories must be prepared before the pipeline is bootstrapped", nil, false, false)
	}

	def, err := b.resolver.Resolve(resource)
	if err != nil {
		return nil, err
	}
	if b.cfg.FileCopy.Pipeline.Once && !def.Trigger.IsOnce() {
		logger.Infof("Pipeline '%s': one-shot mode forced by configuration.", def.ID)
		def.Trigger.Mode = pipelinedef.ModeOnce
	}

	p, err := b.registry.Build(def, Dependencies{
		Cfg:            b.cfg,
		Prepared:       prepared,
		Storage:        b.storage,
		History:        b.history,
		MetricRecorder: b.metricRecorder,
		Tracer:         b.tracer,
	})
	if err != nil {
		return nil, exception.NewConfigurationResolutionFailure(resource, "Failed to build pipeline", err)
	}

	logger.Infof("Starting pipeline '%s' (%s) from '%s'.", def.ID, def.Name, resource)
	return p.Start(ctx), nil
}

var _ Bootstrapper = (*DefaultBootstrapper)(nil)
