package transformer

import (
	"fmt"

	"go.uber.org/fx"

	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/configbinder"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// FileToStringConfig holds the properties of fileToString.
type FileToStringConfig struct {
	Charset string `yaml:"charset"`
}

// CopyHandlerConfig holds the properties of copyHandler.
type CopyHandlerConfig struct {
	Uppercase bool `yaml:"uppercase"`
}

func requireStorage(deps pipeline.Dependencies, ref string) error {
	if deps.Storage == nil {
		return fmt.Errorf("no storage resolver available for '%s'", ref)
	}
	return nil
}

// RegisterTransformerBuilders registers the transformers with the pipeline Registry.
func RegisterTransformerBuilders(registry *pipeline.Registry) {
	registry.RegisterTransformer(FileToBytesRef, func(deps pipeline.Dependencies, _ map[string]string) (port.Transformer, error) {
		if err := requireStorage(deps, FileToBytesRef); err != nil {
			return nil, err
		}
		return NewFileToBytes(deps.Storage), nil
	})
	registry.RegisterTransformer(FileToStringRef, func(deps pipeline.Dependencies, properties map[string]string) (port.Transformer, error) {
		if err := requireStorage(deps, FileToStringRef); err != nil {
			return nil, err
		}
		var cfg FileToStringConfig
		if err := configbinder.BindProperties(properties, &cfg); err != nil {
			return nil, err
		}
		return NewFileToString(deps.Storage, cfg.Charset)
	})
	registry.RegisterTransformer(PassThroughRef, func(_ pipeline.Dependencies, _ map[string]string) (port.Transformer, error) {
		return PassThrough{}, nil
	})
	registry.RegisterTransformer(CopyHandlerRef, func(_ pipeline.Dependencies, properties map[string]string) (port.Transformer, error) {
		var cfg CopyHandlerConfig
		if err := configbinder.BindProperties(properties, &cfg); err != nil {
			return nil, err
		}
		return CopyHandler{Uppercase: cfg.Uppercase}, nil
	})
	logger.Debugf("Transformer components (%s, %s, %s, %s) were registered.", FileToBytesRef, FileToStringRef, PassThroughRef, CopyHandlerRef)
}

// Module registers the pipeline transformers.
var Module = fx.Options(
	fx.Invoke(RegisterTransformerBuilders),
)
