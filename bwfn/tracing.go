package bwfn

import (
	"context"
	"net/http"
	"os"
	"slices"

	"github.com/aws-observability/aws-otel-go/exporters/xrayudp"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/detectors/aws/lambda"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
)

// NewTracerProvider builds the tracer provider the unit-of-work runner opens spans on.
// Setting OTEL_SDK_DISABLED=true yields a no-op provider.
func NewTracerProvider(lc fx.Lifecycle, env Environment) (trace.TracerProvider, error) {
	if os.Getenv("OTEL_SDK_DISABLED") == "true" {
		return noop.NewTracerProvider(), nil
	}

	ctx := context.Background()
	exporter, err := newExporter(ctx, env.otelExporter())
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, env.otelExporter(), env.serviceName())
	if err != nil {
		return nil, err
	}

	// Lambda may freeze the sandbox between invocations, so spans are exported
	// synchronously instead of being batched.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
		sdktrace.WithIDGenerator(xray.NewIDGenerator()),
	)

	lc.Append(fx.Hook{
		OnStop: tp.Shutdown,
	})

	return tp, nil
}

// NewPropagator returns the propagator used for incoming and outgoing trace context.
// X-Ray comes first so the Lambda trace header wins over W3C headers.
func NewPropagator(_ Environment) propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		xray.Propagator{},
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newExporter(ctx context.Context, name string) (sdktrace.SpanExporter, error) {
	switch name {
	case "stdout", "":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "xrayudp":
		return xrayudp.NewSpanExporter(ctx)
	default:
		return nil, errors.Newf("unsupported BW_OTEL_EXPORTER: %q (supported: stdout, xrayudp)", name)
	}
}

func newResource(ctx context.Context, exporter, serviceName string) (*resource.Resource, error) {
	base := resource.NewSchemaless(semconv.ServiceName(serviceName))
	if exporter != "xrayudp" {
		return base, nil
	}

	// The detector fails outside of Lambda; the service name alone is fine then.
	detected, err := lambda.NewResourceDetector().Detect(ctx)
	if err != nil {
		return base, nil //nolint:nilerr
	}

	return resource.Merge(detected, base)
}

// withTracing instruments the invoke surface with otelhttp. Requests whose path is in
// excluded (the readiness check) are not traced.
func withTracing(
	tp trace.TracerProvider,
	prop propagation.TextMapPropagator,
	serviceName string,
	excluded ...string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithPropagators(prop),
			otelhttp.WithFilter(func(r *http.Request) bool {
				return !slices.Contains(excluded, r.URL.Path)
			}),
		)
	}
}
