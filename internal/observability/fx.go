package observability

import (
	"github.com/smallbiznis/salesengine/internal/observability/logger"
	"github.com/smallbiznis/salesengine/internal/observability/metrics"
	"github.com/smallbiznis/salesengine/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideMetricsConfig,
		provideEngineMetrics,
		provideSchedulerMetrics,
		provideTracingConfig,
		tracing.NewTracerProvider,
	),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: cfg.ServiceName,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}
}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}
}

// Disabled metrics resolve to nil collectors; every recorder method is nil-safe.
func provideEngineMetrics(obs Config, cfg metrics.Config) *metrics.EngineMetrics {
	if !obs.MetricsEnabled {
		return nil
	}
	return metrics.EngineWithConfig(cfg)
}

func provideSchedulerMetrics(obs Config, cfg metrics.Config) *metrics.SchedulerMetrics {
	if !obs.MetricsEnabled {
		return nil
	}
	return metrics.SchedulerWithConfig(cfg)
}
