package tracer

import (
	"context"

	"docuchat-be/internal/config"
	"docuchat-be/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// InitTracer installs an OTLP HTTP tracer provider (Jaeger accepts OTLP on
// port 4318) tagged with the app's name and environment. It returns the
// provider's shutdown function, a no-op when tracing is disabled or the
// exporter cannot be built.
func InitTracer(cfg *config.Config, log logger.ILogger) func(context.Context) error {
	if !cfg.Tracing.Enabled {
		log.Info(logger.ModuleTracing, "OpenTelemetry tracing is disabled (set OTEL_ENABLED=true to enable)", nil)
		return func(context.Context) error { return nil }
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(cfg.Tracing.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Warn(logger.ModuleTracing, "Failed to create OTLP exporter, tracing disabled", map[string]interface{}{
			"error": err,
		})
		return func(context.Context) error { return nil }
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(cfg.App)),
		sdktrace.WithSampler(newSampler(cfg.Tracing.SampleRatio)),
	)
	otel.SetTracerProvider(tp)

	log.Info(logger.ModuleTracing, "OpenTelemetry tracer initialized", map[string]interface{}{
		"endpoint":     cfg.Tracing.Endpoint,
		"sample_ratio": cfg.Tracing.SampleRatio,
	})
	return tp.Shutdown
}

func newResource(app config.AppConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(app.Name),
		semconv.DeploymentEnvironment(app.Environment),
	)
}

// newSampler samples every root span at ratio >= 1 and follows the parent's
// decision for child spans.
func newSampler(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	if ratio < 0 {
		ratio = 0
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
