package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/sale/domain"
	usagedomain "github.com/smallbiznis/salesengine/internal/usage/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReverseSale undoes one sale row: stock goes back, derived payments and
// ledger rows are removed and the row itself is deleted.
func (s *Service) ReverseSale(ctx context.Context, saleID, ownerID string) error {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return err
	}
	id, err := parseSaleID(saleID)
	if err != nil {
		return err
	}

	var (
		sale          *domain.Sale
		restored      bool
		ledgerRows    int64
		paymentRows   int64
		remainingRows int64
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err = s.repo.LockByID(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if sale == nil {
			return apperror.NotFound("sale")
		}

		restored, err = s.products.RestoreStock(ctx, tx, owner, sale.ProductID, sale.Quantity, s.clock.Now())
		if err != nil {
			return err
		}
		if ledgerRows, err = s.ledger.DeleteForSaleTx(ctx, tx, sale.ID); err != nil {
			return err
		}
		if paymentRows, err = s.repo.DeletePayments(ctx, tx, sale.ID); err != nil {
			return err
		}
		if _, err = s.repo.Delete(ctx, tx, owner, sale.ID); err != nil {
			return err
		}
		remainingRows, err = s.repo.CountBatch(ctx, tx, owner, sale.BatchID)
		return err
	})
	if err != nil {
		s.log.Warn("sale.reverse.failed",
			zap.String("owner_id", ownerID),
			zap.String("sale_id", saleID),
			zap.Error(err),
		)
		return apperror.FromDB(err)
	}

	if !restored {
		s.log.Warn("sale.reverse.product_missing",
			zap.String("sale_id", sale.ID.String()),
			zap.String("product_id", sale.ProductID.String()),
			zap.Int64("quantity", sale.Quantity),
		)
	}

	s.metrics.IncSaleReversed()
	s.audit(ctx, owner, "sale.reversed", sale.ID, map[string]any{
		"product_id":      sale.ProductID.String(),
		"quantity":        sale.Quantity,
		"total_amount":    sale.TotalAmount.StringFixed(2),
		"stock_restored":  restored,
		"ledger_removed":  ledgerRows,
		"payment_removed": paymentRows,
	})

	if remainingRows == 0 {
		s.releaseUsage(ctx, owner, sale.BatchID)
	}
	return nil
}

func (s *Service) releaseUsage(ctx context.Context, owner, batchID snowflake.ID) {
	if _, err := s.usage.DecrementUsage(ctx, usageSubject(ctx, owner), usagedomain.FeatureSales); err != nil {
		s.log.Warn("sale.usage.decrement_failed",
			zap.String("owner_id", owner.String()),
			zap.String("batch_id", batchID.String()),
			zap.Error(err),
		)
	}
}
