package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNewResource(t *testing.T) {
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "")

	r, err := newResource(context.Background(), "radarbot", Config{Environment: "production"})
	require.NoError(t, err)

	set := r.Set()
	name, ok := set.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	require.Equal(t, "radarbot", name.AsString())

	namespace, ok := set.Value(semconv.ServiceNamespaceKey)
	require.True(t, ok)
	require.Equal(t, serviceNamespace, namespace.AsString())

	env, ok := set.Value(semconv.DeploymentEnvironmentKey)
	require.True(t, ok)
	require.Equal(t, "production", env.AsString())
}

func TestNewResourceWithoutEnvironment(t *testing.T) {
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "")

	r, err := newResource(context.Background(), "radarbot", Config{})
	require.NoError(t, err)

	_, ok := r.Set().Value(semconv.DeploymentEnvironmentKey)
	require.False(t, ok)
}

func TestOtlpConnConfig(t *testing.T) {
	both := OtlpConnConfig{GrpcEndpoint: "http://collector:4317", HttpEndpoint: "http://collector:4318"}
	require.True(t, both.configured())
	require.True(t, both.grpc())
	require.Equal(t, "http://collector:4317", both.endpoint())

	httpOnly := OtlpConnConfig{HttpEndpoint: "http://collector:4318"}
	require.False(t, httpOnly.grpc())
	require.Equal(t, "http://collector:4318", httpOnly.endpoint())

	require.False(t, OtlpConnConfig{}.configured())
}

func TestMetricInterval(t *testing.T) {
	require.Equal(t, defaultMetricInterval, Config{}.metricInterval())
	require.Equal(t, 30*time.Second, Config{MetricIntervalSeconds: 30}.metricInterval())
}

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "radarbot", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}
