package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/config"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/salesengine/internal/notification/domain"
	productdomain "github.com/smallbiznis/salesengine/internal/product/domain"
	"github.com/smallbiznis/salesengine/internal/sale/domain"
	usagedomain "github.com/smallbiznis/salesengine/internal/usage/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// line is one planned sale row together with the product it draws from.
type line struct {
	index   int
	product productdomain.Product
	sale    domain.Sale
}

// applied records how far a line got, so compensation undoes exactly that.
type applied struct {
	line       *line
	stockTaken bool
	inserted   bool
}

func (s *Service) ProcessSale(ctx context.Context, req domain.SaleRequest, ownerID string) (record domain.SaleRecord, err error) {
	itemIndex := -1
	defer func() {
		if err == nil {
			return
		}
		kind := apperror.KindOf(err)
		s.metrics.IncSaleFailure(string(kind))
		fields := []zap.Field{
			zap.String("owner_id", ownerID),
			zap.Int("item_index", itemIndex),
			zap.Int("payload_size", req.PayloadSize),
			zap.String("kind", string(kind)),
			zap.Error(err),
		}
		switch kind {
		case apperror.KindDatabase, apperror.KindRPC, apperror.KindUnknown:
			s.log.Error("sale.process.failed", fields...)
		default:
			s.log.Warn("sale.process.failed", fields...)
		}
	}()

	owner, err := parseOwner(ownerID)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	normalized, err := Normalize(req, s.currency)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	if err := s.allow(ctx, owner); err != nil {
		return domain.SaleRecord{}, err
	}
	if err := s.checkUsage(ctx, owner); err != nil {
		return domain.SaleRecord{}, err
	}

	if normalized.CustomerID != nil {
		exists, err := s.customers.Exists(ctx, owner, *normalized.CustomerID)
		if err != nil {
			return domain.SaleRecord{}, err
		}
		if !exists {
			return domain.SaleRecord{}, apperror.NotFound("customer")
		}
	}

	var methodID *snowflake.ID
	if normalized.PaymentMethodID != "" {
		method, err := s.paymentMethods.Validate(ctx, owner, normalized.PaymentMethodID, normalized.PaymentDetails)
		if err != nil {
			return domain.SaleRecord{}, err
		}
		methodID = &method.ID
	}

	lines, err := s.plan(ctx, owner, normalized, methodID, &itemIndex)
	if err != nil {
		return domain.SaleRecord{}, err
	}

	alerts, err := s.commit(ctx, owner, lines, &itemIndex)
	if err != nil {
		return domain.SaleRecord{}, err
	}

	summary := summarize(lines)
	s.afterCommit(ctx, owner, normalized, summary, alerts)

	last := lines[len(lines)-1].sale
	return domain.SaleRecord{Sale: last, ProcessingSummary: &summary}, nil
}

func (s *Service) allow(ctx context.Context, owner snowflake.ID) error {
	if s.limiter == nil {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, owner)
	if err != nil {
		s.log.Warn("sale.ratelimit.unavailable", zap.String("owner_id", owner.String()), zap.Error(err))
		return nil
	}
	if !ok {
		return apperror.BusinessLogic(domain.ErrRateLimited.Error(), "too many sales submitted, please retry shortly")
	}
	return nil
}

func (s *Service) checkUsage(ctx context.Context, owner snowflake.ID) error {
	status, err := s.usage.CheckUsageLimit(ctx, usageSubject(ctx, owner), usagedomain.FeatureSales)
	if err != nil {
		return err
	}
	if status.LimitReached && !status.Unlimited {
		s.metrics.IncUsageRejection(string(usagedomain.FeatureSales))
		return apperror.BusinessLogic(usagedomain.ErrLimitReached.Error(),
			fmt.Sprintf("sales limit of %d reached for this billing period", status.LimitCount))
	}
	return nil
}

// plan resolves every product up front and splits the up-front payment across
// lines in request order. Nothing is written here.
func (s *Service) plan(ctx context.Context, owner snowflake.ID, sale domain.NormalizedSale, methodID *snowflake.ID, itemIndex *int) ([]*line, error) {
	now := s.clock.Now()
	date := now
	if sale.Date != nil {
		date = *sale.Date
	}
	batchID := s.genID.Generate()
	remaining := sale.AmountPaid

	lines := make([]*line, 0, len(sale.Items))
	for i, item := range sale.Items {
		*itemIndex = i
		product, err := apperror.RetryRead(ctx, func(ctx context.Context) (*productdomain.Product, error) {
			product, err := s.products.FindByID(ctx, s.db, owner, item.ProductID)
			return product, apperror.FromDB(err)
		})
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, apperror.ProductNotFound(item.ProductID.String())
		}

		total := item.Total()
		cogs := product.CostPrice.Mul(decimal.NewFromInt(item.Quantity)).Round(2)

		paid := decimal.Min(remaining, total)
		remaining = remaining.Sub(paid)
		status := sale.PaymentStatus
		if status == domain.PaymentStatusCredit && paid.Equal(total) {
			status = domain.PaymentStatusPaid
		}

		row := domain.Sale{
			ID:              s.genID.Generate(),
			OwnerID:         owner,
			BatchID:         batchID,
			CustomerID:      sale.CustomerID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			TotalAmount:     total,
			TotalCOGS:       cogs,
			GrossProfit:     total.Sub(cogs),
			DiscountAmount:  decimal.Zero,
			TaxAmount:       decimal.Zero,
			Currency:        sale.Currency,
			PaymentMethodID: methodID,
			PaymentStatus:   status,
			AmountPaid:      paid,
			AmountDue:       total.Sub(paid),
			IsCreditSale:    sale.PaymentStatus != domain.PaymentStatusPaid,
			Notes:           sale.Notes,
			Date:            date,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if i == 0 {
			row.DiscountAmount = sale.DiscountAmount
			row.TaxAmount = sale.TaxAmount
		}
		lines = append(lines, &line{index: i, product: *product, sale: row})
	}
	*itemIndex = -1
	return lines, nil
}

// commit writes every line atomically. In compensating mode each statement
// commits on its own and a failure undoes the lines already applied.
func (s *Service) commit(ctx context.Context, owner snowflake.ID, lines []*line, itemIndex *int) ([]notificationdomain.LowStockAlert, error) {
	var alerts []notificationdomain.LowStockAlert

	if s.storeMode == config.StoreModeCompensating {
		done := make([]*applied, 0, len(lines))
		for _, l := range lines {
			*itemIndex = l.index
			step := &applied{line: l}
			done = append(done, step)
			alert, err := s.applyLine(ctx, s.db, owner, step)
			if err != nil {
				s.compensate(ctx, owner, done)
				return nil, err
			}
			if alert != nil {
				alerts = append(alerts, *alert)
			}
		}
		return alerts, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		alerts = alerts[:0]
		for _, l := range lines {
			*itemIndex = l.index
			alert, err := s.applyLine(ctx, tx, owner, &applied{line: l})
			if err != nil {
				return err
			}
			if alert != nil {
				alerts = append(alerts, *alert)
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	return alerts, nil
}

func (s *Service) applyLine(ctx context.Context, db *gorm.DB, owner snowflake.ID, step *applied) (*notificationdomain.LowStockAlert, error) {
	row := &step.line.sale

	ok, err := s.products.DecrementStock(ctx, db, owner, row.ProductID, row.Quantity, row.UpdatedAt)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if !ok {
		s.metrics.IncStockConflict()
		return nil, apperror.InsufficientStock(row.ProductID.String(), row.Quantity)
	}
	step.stockTaken = true

	if err := s.repo.Insert(ctx, db, row); err != nil {
		return nil, apperror.FromDB(err)
	}
	step.inserted = true

	if row.AmountPaid.IsPositive() {
		saleID := row.ID
		if _, err := s.ledger.RecordTx(ctx, db, ledgerdomain.Entry{
			OwnerID:     owner,
			SaleID:      &saleID,
			SourceType:  ledgerdomain.SourceTypeSale,
			SourceID:    row.ID,
			Amount:      row.AmountPaid,
			Currency:    row.Currency,
			Description: fmt.Sprintf("Sale of %d x %s", row.Quantity, step.line.product.Name),
			OccurredAt:  row.Date,
		}); err != nil {
			return nil, apperror.FromDB(err)
		}
	}

	product, err := s.products.FindByID(ctx, db, owner, row.ProductID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if product != nil && product.IsLowStock() {
		return &notificationdomain.LowStockAlert{
			OwnerID:     owner,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    product.Quantity,
			Threshold:   product.LowStockThreshold,
		}, nil
	}
	return nil, nil
}

// compensate undoes applied lines in reverse order. It keeps going on error
// so one failed undo does not strand the remaining lines.
func (s *Service) compensate(ctx context.Context, owner snowflake.ID, done []*applied) {
	ctx = context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		row := step.line.sale
		if step.inserted {
			if _, err := s.ledger.DeleteForSaleTx(ctx, s.db, row.ID); err != nil {
				s.log.Error("sale.compensate.ledger_failed", zap.String("sale_id", row.ID.String()), zap.Error(err))
			}
			if _, err := s.repo.Delete(ctx, s.db, owner, row.ID); err != nil {
				s.log.Error("sale.compensate.delete_failed", zap.String("sale_id", row.ID.String()), zap.Error(err))
			}
		}
		if step.stockTaken {
			if _, err := s.products.RestoreStock(ctx, s.db, owner, row.ProductID, row.Quantity, s.clock.Now()); err != nil {
				s.log.Error("sale.compensate.restore_failed",
					zap.String("product_id", row.ProductID.String()),
					zap.Int64("quantity", row.Quantity),
					zap.Error(err),
				)
			}
		}
	}
	s.log.Warn("sale.compensated", zap.String("owner_id", owner.String()), zap.Int("lines", len(done)))
}

func summarize(lines []*line) domain.ProcessingSummary {
	summary := domain.ProcessingSummary{
		BatchID:     lines[0].sale.BatchID.String(),
		SaleIDs:     make([]string, 0, len(lines)),
		TotalAmount: decimal.Zero,
		TotalCOGS:   decimal.Zero,
	}
	for _, l := range lines {
		summary.SaleIDs = append(summary.SaleIDs, l.sale.ID.String())
		summary.TotalAmount = summary.TotalAmount.Add(l.sale.TotalAmount)
		summary.TotalCOGS = summary.TotalCOGS.Add(l.sale.TotalCOGS)
	}
	summary.Profit = summary.TotalAmount.Sub(summary.TotalCOGS)
	summary.ItemsProcessed = len(lines)
	return summary
}

func (s *Service) afterCommit(ctx context.Context, owner snowflake.ID, sale domain.NormalizedSale, summary domain.ProcessingSummary, alerts []notificationdomain.LowStockAlert) {
	batchID, _ := snowflake.ParseString(summary.BatchID)
	s.audit(ctx, owner, "sale.processed", batchID, map[string]any{
		"sale_ids":       summary.SaleIDs,
		"items":          summary.ItemsProcessed,
		"total_amount":   summary.TotalAmount.StringFixed(2),
		"payment_status": string(sale.PaymentStatus),
	})
	s.metrics.ObserveSale(string(sale.PaymentStatus), summary.ItemsProcessed)

	if s.notifier != nil {
		for _, alert := range alerts {
			s.notifier.LowStock(ctx, alert)
		}
	}

	if _, err := s.usage.IncrementUsage(ctx, usageSubject(ctx, owner), usagedomain.FeatureSales); err != nil {
		s.log.Warn("sale.usage.increment_failed",
			zap.String("owner_id", owner.String()),
			zap.String("batch_id", summary.BatchID),
			zap.Error(err),
		)
	}

	s.log.Info("sale.processed",
		zap.String("owner_id", owner.String()),
		zap.String("batch_id", summary.BatchID),
		zap.Int("items", summary.ItemsProcessed),
		zap.String("total_amount", summary.TotalAmount.StringFixed(2)),
	)
}
