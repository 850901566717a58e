package sink

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/configbinder"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// NewStorageSinkBuilder returns the pipeline.SinkBuilder for StorageSink.
func NewStorageSinkBuilder() pipeline.SinkBuilder {
	return func(deps pipeline.Dependencies, properties map[string]string) (port.Sink, error) {
		cfg := StorageSinkConfig{StorageRef: "output"}
		if err := configbinder.BindProperties(properties, &cfg); err != nil {
			return nil, err
		}
		if deps.Storage == nil {
			return nil, fmt.Errorf("no storage resolver available for '%s'", StorageSinkRef)
		}
		conn, err := deps.Storage.ResolveStorageConnection(context.Background(), cfg.StorageRef)
		if err != nil {
			return nil, err
		}
		return NewStorageSink(cfg, conn, deps.Storage, deps.History)
	}
}

// RegisterSinkBuilders registers the sinks with the pipeline Registry.
func RegisterSinkBuilders(registry *pipeline.Registry) {
	registry.RegisterSink(StorageSinkRef, NewStorageSinkBuilder())
	logger.Debugf("Sink components (%s) were registered.", StorageSinkRef)
}

// Module registers the pipeline sinks.
var Module = fx.Options(
	fx.Invoke(RegisterSinkBuilders),
)
