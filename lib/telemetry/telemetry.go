package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Telemetry holds the providers installed by Setup, either of them may be nil
// when no exporter endpoint was configured for it.
type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

func (t Telemetry) Shutdown(ctx context.Context) error {
	errlist := []error{}
	if t.TracerProvider != nil {
		err := t.TracerProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	if t.MeterProvider != nil {
		err := t.MeterProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}

// Tracer returns a named tracer from the global provider, it is safe to call
// before Setup since otel delegates to whatever provider is installed later.
func Tracer(name string) oteltrace.Tracer {
	return otel.Tracer(name)
}

// SetupForTesting sets up logging for a test, exporters are never configured
// so tests stay offline.
func SetupForTesting(t testing.TB, serviceName string) func() {
	InitSlog(testing.Verbose())
	tel, err := Setup(context.Background(), serviceName, Config{})
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}

// Setup installs the global tracer and meter providers for the endpoints in
// `config`, a signal without an endpoint is left on the otel no-op provider.
func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	out := Telemetry{}
	if !config.Otlp.Traces.configured() && !config.Otlp.Metrics.configured() {
		return out, nil
	}

	r, err := newResource(ctx, serviceName, config)
	if err != nil {
		return Telemetry{}, err
	}

	if config.Otlp.Traces.configured() {
		tracerProvider, err := newTraceProvider(ctx, r, config)
		if err != nil {
			return Telemetry{}, err
		}
		otel.SetTracerProvider(tracerProvider)
		out.TracerProvider = tracerProvider
	}

	if config.Otlp.Metrics.configured() {
		meterProvider, err := newMetricProvider(ctx, r, config)
		if err != nil {
			return Telemetry{}, err
		}
		otel.SetMeterProvider(meterProvider)
		out.MeterProvider = meterProvider
	}

	return out, nil
}
