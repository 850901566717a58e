package metrics

import (
	"context"
	"strings"

	"go.uber.org/fx"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	metrics "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/metrics"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

const (
	BackendPrometheus = "prometheus"
	BackendOTLP       = "otlp"
)

// RecorderParams holds the dependencies of NewMetricRecorder.
type RecorderParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Cfg       *config.Config
}

// NewMetricRecorder selects the MetricRecorder from filecopy.metrics.
// Disabled metrics yield the no-op recorder. Providers and the /metrics endpoint
// are bound to the fx lifecycle.
func NewMetricRecorder(p RecorderParams) (metrics.MetricRecorder, error) {
	cfg := p.Cfg.FileCopy.Metrics
	if !cfg.Enabled {
		logger.Debugf("Metrics are disabled. Using NoOpMetricRecorder.")
		return metrics.NewNoOpMetricRecorder(), nil
	}

	switch strings.ToLower(cfg.Backend) {
	case BackendOTLP:
		recorder, err := NewOtelMetricRecorder(context.Background(), cfg, p.Cfg.FileCopy.Tracing.ServiceName)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{OnStop: recorder.Shutdown})
		logger.Infof("Metrics: exporting via OTLP/%s.", protocolOrDefault(cfg.Protocol))
		return recorder, nil
	default:
		recorder := NewPrometheusRecorder()
		if cfg.ListenAddress != "" {
			server := NewMetricsServer(cfg.ListenAddress, recorder)
			p.Lifecycle.Append(fx.Hook{OnStart: server.Start, OnStop: server.Stop})
		}
		logger.Infof("Metrics: using Prometheus recorder.")
		return recorder, nil
	}
}

// TracerParams holds the dependencies of NewTracer.
type TracerParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Cfg       *config.Config
}

// NewTracer selects the Tracer from filecopy.tracing.
func NewTracer(p TracerParams) (metrics.Tracer, error) {
	cfg := p.Cfg.FileCopy.Tracing
	if !cfg.Enabled {
		logger.Debugf("Tracing is disabled. Using NoOpTracer.")
		return metrics.NewNoOpTracer(), nil
	}
	tracer, err := NewOpenTelemetryTracer(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{OnStop: tracer.Shutdown})
	logger.Infof("Tracing: exporting spans via OTLP/%s as '%s'.", protocolOrDefault(cfg.Protocol), cfg.ServiceName)
	return tracer, nil
}

func protocolOrDefault(protocol string) string {
	if protocol == "" {
		return protocolHTTP
	}
	return strings.ToLower(protocol)
}

// Module is an Fx module that provides the MetricRecorder and Tracer selected by configuration.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
