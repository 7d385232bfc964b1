package telemetry

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/eduflick/backend/core"
)

// ServiceName names the API in traces.
const ServiceName = "eduflick-api"

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Setup registers a global tracer provider exporting to conf.Telemetry.OTLPEndpoint.
// Without an endpoint it registers nothing and returns a no-op shutdown.
func Setup(ctx context.Context, conf *core.Config) (ShutdownFunc, error) {
	if conf.Telemetry.OTLPEndpoint == "" || conf.TestMode {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(conf.Telemetry.OTLPEndpoint))
	if err != nil {
		return noop, errors.Wrap(err, "creating otlp exporter")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(conf.Build),
			semconv.DeploymentEnvironment(conf.Env),
		),
	)
	if err != nil {
		return noop, errors.Wrap(err, "creating otel resource")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}

