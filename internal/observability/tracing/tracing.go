// Package tracing configures the OpenTelemetry tracer provider used by the
// gorm tracing plugin and the logger's trace fields.
package tracing

import (
	"context"
	"time"

	"github.com/smallbiznis/salesengine/internal/ownercontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Version     string
	Environment string
}

// NewTracerProvider exports spans over OTLP/gRPC. It returns nil when no
// endpoint is configured and the global no-op provider stays in place.
func NewTracerProvider(lc fx.Lifecycle, cfg Config, logger *zap.Logger) (*sdktrace.TracerProvider, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	exporter, err := otlptracegrpc.New(ctx, opts...)
	cancel()
	if err != nil {
		return nil, err
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(OwnerSpanProcessor{}),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("tracing.shutdown")
			return tp.Shutdown(ctx)
		},
	})

	logger.Info("tracing.initialized", zap.String("endpoint", cfg.Endpoint))
	return tp, nil
}

// OwnerSpanProcessor tags every span with the owner and request carried by
// its context.
type OwnerSpanProcessor struct{}

func (OwnerSpanProcessor) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if ownerID, ok := ownercontext.OwnerIDFromContext(ctx); ok {
		s.SetAttributes(attribute.String("owner_id", ownerID.String()))
	}
	if userID, ok := ownercontext.UserIDFromContext(ctx); ok {
		s.SetAttributes(attribute.String("user_id", userID.String()))
	}
	if requestID := ownercontext.RequestIDFromContext(ctx); requestID != "" {
		s.SetAttributes(attribute.String("request_id", requestID))
	}
}

func (OwnerSpanProcessor) OnEnd(sdktrace.ReadOnlySpan) {}

func (OwnerSpanProcessor) Shutdown(context.Context) error { return nil }

func (OwnerSpanProcessor) ForceFlush(context.Context) error { return nil }
