package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// instrumentationName names the tracer and meter handed out by Init.
const instrumentationName = "rbset"

// Providers holds the initialized observability providers.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger *slog.Logger

	// MetricsHandler serves the Prometheus scrape endpoint. It is nil unless
	// Init ran WithPrometheus.
	MetricsHandler http.Handler

	// Shutdown flushes pending telemetry within Config.ShutdownTimeout. It
	// must run before the process exits and may be called more than once.
	Shutdown func(ctx context.Context) error
}

// Option adjusts Init.
type Option func(*initOptions)

type initOptions struct {
	logOutput  io.Writer
	prometheus bool
}

// WithLogOutput sends log records to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *initOptions) {
		o.logOutput = w
	}
}

// WithPrometheus adds a Prometheus reader to the meter provider and exposes
// it as Providers.MetricsHandler.
func WithPrometheus() Option {
	return func(o *initOptions) {
		o.prometheus = true
	}
}

type shutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init sets up tracing, metrics and logging and installs them as the OTel
// globals. Without an OTLP endpoint or Prometheus the providers are no-ops.
func Init(cfg Config, opts ...Option) (Providers, error) {
	ctx := context.Background()

	o := initOptions{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := buildResource(cfg)
	if err != nil {
		return Providers{}, err
	}

	tp, stopTraces, err := tracing(ctx, cfg, res)
	if err != nil {
		return Providers{}, fmt.Errorf("build tracer provider: %w", err)
	}

	mp, scrape, stopMetrics, err := metering(ctx, cfg, res, o.prometheus)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("build meter provider: %w", err), stopTraces(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return Providers{
		Tracer:         tp.Tracer(instrumentationName),
		Meter:          mp.Meter(instrumentationName),
		Logger:         NewLogger(cfg, o.logOutput),
		MetricsHandler: scrape,
		Shutdown: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.shutdownTimeout())
			defer cancel()

			return errors.Join(stopTraces(ctx), stopMetrics(ctx))
		},
	}, nil
}

func buildResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	if cfg.Mode != "" {
		attrs = append(attrs, attribute.String("app.mode", string(cfg.Mode)))
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	return res, nil
}

func tracing(ctx context.Context, cfg Config, res *resource.Resource) (trace.TracerProvider, shutdownFunc, error) {
	if !cfg.exporting() {
		return nooptrace.NewTracerProvider(), noopShutdown, nil
	}

	exporter, err := otlptracegrpc.New(ctx, targetOf(cfg).traceOptions()...)
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}

	var dropLog *slog.Logger
	if cfg.DebugTrace {
		dropLog = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewSpanScrubber(sdktrace.NewBatchSpanProcessor(exporter), dropLog)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(selectSampler(cfg)),
	)

	if cfg.TraceVerbose {
		return sdk, sdk.Shutdown, nil
	}

	return NewFilteringTracerProvider(sdk), sdk.Shutdown, nil
}

func metering(
	ctx context.Context, cfg Config, res *resource.Resource, withPrometheus bool,
) (metric.MeterProvider, http.Handler, shutdownFunc, error) {
	if !cfg.exporting() && !withPrometheus {
		return noopmetric.NewMeterProvider(), nil, noopShutdown, nil
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	var scrape http.Handler

	if withPrometheus {
		reader, handler, err := newPrometheusReader()
		if err != nil {
			return nil, nil, nil, err
		}

		scrape = handler
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	if cfg.exporting() {
		exporter, err := otlpmetricgrpc.New(ctx, targetOf(cfg).metricOptions()...)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create metric exporter: %w", err)
		}

		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	}

	mp := sdkmetric.NewMeterProvider(opts...)

	return mp, scrape, mp.Shutdown, nil
}
