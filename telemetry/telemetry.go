// Package telemetry wires OpenTelemetry trace and log export for the
// binaries in this module.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/amp-labs/lifecycle/config"
	"github.com/amp-labs/lifecycle/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	defaultServiceVersion = "1.0.0"
	defaultTimeout        = 5 * time.Second

	gkeCollectorEndpoint = "http://opentelemetry-collector.opentelemetry.svc.cluster.local:4318"
)

var (
	providersMu    sync.Mutex               //nolint:gochecknoglobals
	tracerProvider *sdktrace.TracerProvider //nolint:gochecknoglobals
	loggerProvider *sdklog.LoggerProvider   //nolint:gochecknoglobals
)

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string        `env:"OTEL_SERVICE_NAME"`
	ServiceVersion string        `env:"OTEL_SERVICE_VERSION"               envDefault:"1.0.0"`
	Environment    string        `env:"ENVIRONMENT"`
	Endpoint       string        `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	LogsEndpoint   string        `env:"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"`
	Enabled        bool          `env:"OTEL_ENABLED"                       envDefault:"false"`
	Logs           bool          `env:"OTEL_LOGS_ENABLED"                  envDefault:"false"`
	Timeout        time.Duration `env:"OTEL_EXPORTER_OTLP_TRACES_TIMEOUT"  envDefault:"5s"`
}

// LoadConfigFromEnv loads OpenTelemetry configuration from environment variables.
// runningEnv is used when ENVIRONMENT is unset.
func LoadConfigFromEnv(ctx context.Context, runningEnv string) (*Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	if cfg.Environment == "" {
		cfg.Environment = runningEnv
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = logger.GetSubsystem(ctx)
	}

	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = defaultServiceVersion
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	// Default to the GKE collector when running in Kubernetes.
	if cfg.Endpoint == "" && os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		cfg.Endpoint = gkeCollectorEndpoint
	}

	if cfg.LogsEndpoint == "" {
		cfg.LogsEndpoint = cfg.Endpoint
	}

	return &cfg, nil
}

// Initialize sets up OpenTelemetry tracing, and log export when Logs is set,
// with the given configuration.
func Initialize(ctx context.Context, cfg *Config) error {
	if !cfg.Enabled {
		slog.Info("OpenTelemetry tracing is disabled")

		return nil
	}

	if cfg.Endpoint == "" {
		slog.Warn("OpenTelemetry endpoint not configured, tracing will be disabled")

		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
		otlptracehttp.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	var lp *sdklog.LoggerProvider

	if cfg.Logs && cfg.LogsEndpoint != "" {
		logExporter, err := otlploghttp.New(ctx,
			otlploghttp.WithEndpointURL(cfg.LogsEndpoint),
			otlploghttp.WithTimeout(cfg.Timeout),
		)
		if err != nil {
			return errors.Join(fmt.Errorf("failed to create OTLP log exporter: %w", err), tp.Shutdown(ctx))
		}

		lp = sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		)

		global.SetLoggerProvider(lp)
	}

	providersMu.Lock()
	tracerProvider = tp
	loggerProvider = lp
	providersMu.Unlock()

	otel.SetTracerProvider(tp)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("OpenTelemetry tracing initialized",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"environment", cfg.Environment,
		"endpoint", cfg.Endpoint,
		"logs", lp != nil,
	)

	return nil
}

// Shutdown flushes and stops the providers started by Initialize.
func Shutdown(ctx context.Context) error {
	providersMu.Lock()
	tp, lp := tracerProvider, loggerProvider
	tracerProvider, loggerProvider = nil, nil
	providersMu.Unlock()

	if tp == nil && lp == nil {
		return nil
	}

	slog.Info("Shutting down OpenTelemetry providers")

	var errs []error

	if lp != nil {
		errs = append(errs, lp.Shutdown(ctx))
	}

	if tp != nil {
		errs = append(errs, tp.Shutdown(ctx))
	}

	return errors.Join(errs...)
}
