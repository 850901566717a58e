package metrics

import (
	"go.uber.org/fx"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/metrics"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
)

// RegisterMetricsListener registers the metrics listener builder.
// The listener records to the pipeline's MetricRecorder.
func RegisterMetricsListener(registry *pipeline.Registry) {
	registry.RegisterListener(ListenerRef, func(deps pipeline.Dependencies, _ map[string]string) (port.PipelineListener, error) {
		recorder := deps.MetricRecorder
		if recorder == nil {
			recorder = metrics.NewNoOpMetricRecorder()
		}
		return NewMetricsListener(recorder), nil
	})
}

// Module registers the metrics listener and makes metric recording asynchronous.
var Module = fx.Options(
	fx.Invoke(RegisterMetricsListener),
	fx.Decorate(NewAsyncMetricRecorderWrapper),
)
