package publisher

import (
	"context"

	"github.com/smallbiznis/salesengine/internal/revenue/domain"
	"go.uber.org/zap"
)

// LogPublisher records deltas in the service log when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("revenue.publisher")}
}

func (p *LogPublisher) Publish(_ context.Context, delta domain.RecognitionDelta) error {
	p.log.Info("revenue.recognition_delta",
		zap.String("sale_id", delta.SaleID),
		zap.String("owner_id", delta.OwnerID),
		zap.String("old_status", string(delta.OldStatus)),
		zap.String("new_status", string(delta.NewStatus)),
		zap.String("revenue_impact", delta.RevenueImpact.StringFixed(2)),
		zap.String("profit_impact", delta.ProfitImpact.StringFixed(2)),
	)
	return nil
}
