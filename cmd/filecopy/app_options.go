package main

import (
	"io/fs"
	"os"
	"strings"

	"go.uber.org/fx"

	storage "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage/gcs"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage/local"
	gormadapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/gorm"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/gorm/mysql"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/gorm/postgres"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/database/gorm/sqlite"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/component/report"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/component/sink"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/component/source"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/component/transformer"
	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	pipelinedef "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config/pipeline"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/directory"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/launcher"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	infraMetrics "github.com/tigerroll/surfin-filecopy/pkg/filecopy/infrastructure/metrics"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/infrastructure/migration"
	infraRepository "github.com/tigerroll/surfin-filecopy/pkg/filecopy/infrastructure/repository"
	loggingListener "github.com/tigerroll/surfin-filecopy/pkg/filecopy/listener/logging"
	metricsListener "github.com/tigerroll/surfin-filecopy/pkg/filecopy/listener/metrics"
	tracingListener "github.com/tigerroll/surfin-filecopy/pkg/filecopy/listener/tracing"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// Overrides are the command line settings applied on top of the loaded configuration.
type Overrides struct {
	Resource    string
	EnvFilePath string
	Once        bool
}

// dbProviderModules maps the names accepted in DB_ADAPTERS to their provider modules.
var dbProviderModules = map[string]fx.Option{
	sqlite.ProviderType:   sqlite.Module,
	mysql.ProviderType:    mysql.Module,
	postgres.ProviderType: postgres.Module,
}

// getDBProviderOptions selects the database providers named by the DB_ADAPTERS environment variable
// (e.g. "sqlite,postgres"). All providers are registered when it is unset.
func getDBProviderOptions() []fx.Option {
	adapters := os.Getenv("DB_ADAPTERS")
	if adapters == "" {
		adapters = "postgres,mysql,sqlite"
	}

	options := make([]fx.Option, 0)
	for _, name := range strings.Split(adapters, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if module, ok := dbProviderModules[name]; ok {
			options = append(options, module)
			logger.Debugf("DB Provider '%s' selected and registered.", name)
		} else {
			logger.Warnf("DB Provider '%s' is configured but not recognized/supported. Skipping.", name)
		}
	}
	return options
}

// applyOverrides returns the decorator that applies command line overrides to *config.Config.
func applyOverrides(o Overrides) func(cfg *config.Config) *config.Config {
	return func(cfg *config.Config) *config.Config {
		if o.Resource != "" {
			cfg.FileCopy.Pipeline.Resource = o.Resource
		}
		if o.Once {
			cfg.FileCopy.Pipeline.Once = true
		}
		return cfg
	}
}

// GetApplicationOptions builds the uber-fx options of the application.
// Modules are listed in startup order; the launcher comes last so that its hooks
// start after, and stop before, the resources the pipeline uses.
func GetApplicationOptions(o Overrides, embeddedConfig config.EmbeddedConfig, resources fs.FS) ([]fx.Option, error) {
	definitions, err := fs.Sub(resources, "resources")
	if err != nil {
		return nil, err
	}

	var options []fx.Option
	options = append(options, fx.Supply(
		embeddedConfig,
		fx.Annotate(o.EnvFilePath, fx.ResultTags(`name:"envFilePath"`)),
	))
	options = append(options, fx.Provide(func() pipelinedef.EmbeddedDefinitions { return definitions }))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, fx.Decorate(applyOverrides(o)))

	options = append(options, storage.Module, local.Module, gcs.Module)
	options = append(options, gormadapter.Module)
	options = append(options, getDBProviderOptions()...)
	options = append(options, migration.Module)
	options = append(options, infraRepository.Module)
	options = append(options, infraMetrics.Module)

	options = append(options, directory.Module)
	options = append(options, pipeline.Module)
	options = append(options, source.Module, transformer.Module, sink.Module, report.Module)
	options = append(options, loggingListener.Module, metricsListener.Module, tracingListener.Module)
	options = append(options, launcher.Module)
	return options, nil
}
