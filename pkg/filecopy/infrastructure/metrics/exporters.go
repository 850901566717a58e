package metrics

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
)

const (
	protocolHTTP = "http"
	protocolGRPC = "grpc"
)

func newResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}

// newMetricExporter builds the OTLP metric exporter selected by cfg.Protocol.
// An empty endpoint leaves the exporter's environment-based default in place.
func newMetricExporter(ctx context.Context, cfg config.MetricsConfig) (sdkmetric.Exporter, error) {
	switch strings.ToLower(cfg.Protocol) {
	case "", protocolHTTP:
		var opts []otlpmetrichttp.Option
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	case protocolGRPC:
		var opts []otlpmetricgrpc.Option
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP metrics protocol: %s", cfg.Protocol)
	}
}

// newTraceExporter builds the OTLP span exporter selected by cfg.Protocol.
func newTraceExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Protocol) {
	case "", protocolHTTP:
		var opts []otlptracehttp.Option
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case protocolGRPC:
		var opts []otlptracegrpc.Option
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP trace protocol: %s", cfg.Protocol)
	}
}

// toAttributes converts loosely typed event attributes into OpenTelemetry attributes.
func toAttributes(values map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(values))
	for k, v := range values {
		switch tv := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, tv))
		case bool:
			attrs = append(attrs, attribute.Bool(k, tv))
		case int:
			attrs = append(attrs, attribute.Int(k, tv))
		case int64:
			attrs = append(attrs, attribute.Int64(k, tv))
		case float64:
			attrs = append(attrs, attribute.Float64(k, tv))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", tv)))
		}
	}
	return attrs
}
