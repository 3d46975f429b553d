package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceNamespace = "radarbot"

// runs are short, metrics are flushed often so that a single run still exports some
const defaultMetricInterval = 5 * time.Second

type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c OtlpConnConfig) configured() bool {
	return c.GrpcEndpoint != "" || c.HttpEndpoint != ""
}

// grpc wins when both endpoints are set
func (c OtlpConnConfig) grpc() bool {
	return c.GrpcEndpoint != ""
}

func (c OtlpConnConfig) endpoint() string {
	if c.grpc() {
		return c.GrpcEndpoint
	}
	return c.HttpEndpoint
}

func (c OtlpConnConfig) logInitialized(signal string) {
	transport := "http"
	if c.grpc() {
		transport = "grpc"
	}
	slog.Info(
		"otlp exporter initialized",
		"signal", signal,
		"type", transport,
		"endpoint", c.endpoint(),
		"headers", len(c.Headers) > 0,
	)
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
	// Environment is exported as deployment.environment, ex. "production" or "dev".
	Environment           string `json:"environment"`
	MetricIntervalSeconds int    `json:"metric_interval_seconds"`
}

func (c Config) metricInterval() time.Duration {
	if c.MetricIntervalSeconds <= 0 {
		return defaultMetricInterval
	}
	return time.Duration(c.MetricIntervalSeconds) * time.Second
}

// newResource describes this process, OTEL_RESOURCE_ATTRIBUTES can add to or
// override the attributes set here.
func newResource(ctx context.Context, serviceName string, config Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceNamespace(serviceNamespace),
	}
	if config.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(config.Environment))
	}

	detected, err := resource.New(
		ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithFromEnv(),
	)
	if err != nil && !errors.Is(err, resource.ErrPartialResource) {
		return nil, err
	}
	return resource.Merge(resource.Default(), detected)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, config Config) (*trace.TracerProvider, error) {
	exporter, err := newSpanExporter(ctx, config.Otlp.Traces)
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

func newSpanExporter(ctx context.Context, c OtlpConnConfig) (trace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	c.logInitialized("traces")
	if c.grpc() {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(c.GrpcEndpoint),
			otlptracegrpc.WithHeaders(c.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(c.HttpEndpoint),
		otlptracehttp.WithHeaders(c.Headers),
	)
}

func newMetricProvider(ctx context.Context, r *resource.Resource, config Config) (*metric.MeterProvider, error) {
	exporter, err := newMetricExporter(ctx, config.Otlp.Metrics)
	if err != nil {
		return nil, err
	}
	reader := metric.NewPeriodicReader(exporter, metric.WithInterval(config.metricInterval()))
	return metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(r),
	), nil
}

func newMetricExporter(ctx context.Context, c OtlpConnConfig) (metric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	c.logInitialized("metrics")
	if c.grpc() {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(c.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(c.Headers),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(c.HttpEndpoint),
		otlpmetrichttp.WithHeaders(c.Headers),
	)
}
