package report

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/configbinder"
)

// NewParquetReportListenerBuilder returns the pipeline.ListenerBuilder for ParquetReportListener.
func NewParquetReportListenerBuilder() pipeline.ListenerBuilder {
	return func(deps pipeline.Dependencies, properties map[string]string) (port.PipelineListener, error) {
		cfg := ParquetReportConfig{StorageRef: "output", OutputBaseDir: "_reports"}
		if err := configbinder.BindProperties(properties, &cfg); err != nil {
			return nil, err
		}
		if deps.Storage == nil {
			return nil, fmt.Errorf("no storage resolver available for '%s'", ParquetReportListenerRef)
		}
		conn, err := deps.Storage.ResolveStorageConnection(context.Background(), cfg.StorageRef)
		if err != nil {
			return nil, err
		}
		return NewParquetReportListener(cfg, conn)
	}
}

// RegisterReportListener registers the parquet report listener with the pipeline Registry.
func RegisterReportListener(registry *pipeline.Registry) {
	registry.RegisterListener(ParquetReportListenerRef, NewParquetReportListenerBuilder())
}

// Module registers the report listener.
var Module = fx.Options(
	fx.Invoke(RegisterReportListener),
)
