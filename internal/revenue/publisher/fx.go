package publisher

import (
	"context"

	"github.com/smallbiznis/salesengine/internal/config"
	"github.com/smallbiznis/salesengine/internal/revenue/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewFromConfig picks Kafka when brokers are configured and the log
// publisher otherwise.
func NewFromConfig(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) domain.EventPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return NewLogPublisher(log)
	}
	pub := NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.RecognitionTopic)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	})
	log.Info("revenue.publisher.kafka",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.RecognitionTopic),
	)
	return pub
}
