package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctchen222/tictactoe/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const shutdownTimeout = 5 * time.Second

// InitOtel initializes an OpenTelemetry SDK with configurations for traces,
// metrics and logs. When telemetry is disabled the global no-op providers are
// left in place and the returned shutdown func does nothing.
func InitOtel(ctx context.Context, cfg config.Telemetry) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	// --- Create gRPC connection ---
	conn, err := grpc.NewClient(cfg.CollectorEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP collector: %w", err)
	}

	// --- Create shared resource ---
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create resource: %w", err), conn.Close())
	}

	// --- Setup Traces ---
	otlpTraceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create OTLP trace exporter: %w", err), conn.Close())
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithBatcher(otlpTraceExporter),
		sdktrace.WithResource(res),
	}
	if cfg.StdoutTraces {
		stdoutTraceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to create stdout trace exporter: %w", err), conn.Close())
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(stdoutTraceExporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	// --- Setup Metrics ---
	otlpMetricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create OTLP metric exporter: %w", err), tp.Shutdown(ctx), conn.Close())
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(otlpMetricExporter)),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	// --- Setup Logs ---
	otlpLogExporter, err := otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create OTLP log exporter: %w", err), tp.Shutdown(ctx), mp.Shutdown(ctx), conn.Close())
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(otlpLogExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	// --- Shutdown function ---
	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		var errs []error
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown TracerProvider: %w", err))
		}
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown MeterProvider: %w", err))
		}
		if err := lp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown LoggerProvider: %w", err))
		}

		// Close the gRPC connection
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close gRPC connection: %w", err))
		}

		return errors.Join(errs...)
	}

	return shutdown, nil
}
