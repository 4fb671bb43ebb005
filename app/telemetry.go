package app

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/AntonStoeckl/library-circulation-go/config"
	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/oteladapters"
)

// ErrTelemetrySetupFailed is returned when the OTLP exporters cannot be created.
var ErrTelemetrySetupFailed = errors.New("setting up telemetry failed")

// observability bundles the collectors handed to the coordinator and the SQL engine.
// All fields are nil when telemetry is disabled.
type observability struct {
	contextualLogger library.ContextualLogger
	metrics          library.MetricsCollector
	tracing          library.TracingCollector
	shutdown         func(context.Context) error
}

func noObservability() observability {
	return observability{shutdown: func(context.Context) error { return nil }}
}

// setupTelemetry installs OTLP providers as the global ones when an endpoint is configured,
// then builds the adapters on top of the global providers.
// Without an endpoint the coordinator's contextual log goes to the library's own logger.
func setupTelemetry(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (observability, error) {
	if !cfg.Enabled {
		return noObservability(), nil
	}

	obs := noObservability()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := installOTLPProviders(ctx, cfg)
		if err != nil {
			return observability{}, errors.Join(ErrTelemetrySetupFailed, err)
		}

		obs.shutdown = shutdown
		obs.contextualLogger = oteladapters.NewSlogBridgeLogger(cfg.ServiceName)
	} else {
		obs.contextualLogger = oteladapters.NewSlogBridgeLoggerWithHandler(logger.Handler())
	}

	obs.metrics = oteladapters.NewMetricsCollector(otel.Meter(cfg.ServiceName))
	obs.tracing = oteladapters.NewTracingCollector(otel.Tracer(cfg.ServiceName))

	return obs, nil
}

func installOTLPProviders(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)))
	if err != nil {
		return nil, err
	}

	traceOptions := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	metricOptions := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	logOptions := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTLPEndpoint)}

	if cfg.Insecure {
		traceOptions = append(traceOptions, otlptracegrpc.WithInsecure())
		metricOptions = append(metricOptions, otlpmetricgrpc.WithInsecure())
		logOptions = append(logOptions, otlploggrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOptions...)
	if err != nil {
		return nil, err
	}

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOptions...)
	if err != nil {
		return nil, errors.Join(err, traceExporter.Shutdown(ctx))
	}

	logExporter, err := otlploggrpc.New(ctx, logOptions...)
	if err != nil {
		return nil, errors.Join(err, traceExporter.Shutdown(ctx), metricExporter.Shutdown(ctx))
	}

	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter), sdktrace.WithResource(res))
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	global.SetLoggerProvider(loggerProvider)

	return func(ctx context.Context) error {
		// spans and logs first, they may still record metrics while flushing
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			loggerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
	}, nil
}
