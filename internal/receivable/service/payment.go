package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/audit/masking"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	"github.com/smallbiznis/salesengine/internal/receivable/domain"
	revenuedomain "github.com/smallbiznis/salesengine/internal/revenue/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecordPartialPayment applies one installment against a Credit or Pending sale.
func (s *Service) RecordPartialPayment(ctx context.Context, saleID string, req domain.PaymentRequest) (result domain.PaymentResult, err error) {
	defer func() {
		if err != nil {
			s.metrics.IncPartialPayment("rejected")
		}
	}()

	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.PaymentResult{}, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}
	id, err := parseID(saleID)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return domain.PaymentResult{}, apperror.Invalid("amount", domain.ErrInvalidAmount, "amount must be greater than zero")
	}
	if strings.TrimSpace(req.PaymentMethodID) == "" {
		return domain.PaymentResult{}, apperror.Invalid("payment_method_id", domain.ErrMethodRequired, "a payment method is required")
	}
	method, err := s.paymentMethods.Validate(ctx, ownerID, req.PaymentMethodID, req.PaymentDetails)
	if err != nil {
		return domain.PaymentResult{}, err
	}

	now := s.clock.Now()
	var (
		before  saledomain.Sale
		after   *saledomain.Sale
		payment saledomain.SalePayment
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.sales.LockByID(ctx, tx, ownerID, id)
		if err != nil {
			return apperror.FromDB(err)
		}
		if sale == nil {
			return apperror.NotFound("sale")
		}
		before = *sale

		if sale.PaymentStatus != saledomain.PaymentStatusCredit && sale.PaymentStatus != saledomain.PaymentStatusPending {
			return apperror.BusinessLogic(domain.ErrPartialNotAllowed.Error(), "sale does not allow partial payments")
		}
		if amount.GreaterThan(sale.AmountDue) {
			return apperror.BusinessLogic(domain.ErrExceedsBalance.Error(), "payment exceeds outstanding balance")
		}
		fullyPaid := sale.AmountDue.Sub(amount).LessThanOrEqual(saledomain.AmountTolerance)
		if !fullyPaid && sale.CustomerID == nil {
			return apperror.BusinessLogic(domain.ErrCustomerRequired.Error(), "a customer is required to leave a balance outstanding")
		}

		payment = saledomain.SalePayment{
			ID:              s.genID.Generate(),
			OwnerID:         ownerID,
			SaleID:          sale.ID,
			Amount:          amount,
			PaymentMethodID: method.ID,
			Reference:       strings.TrimSpace(req.Reference),
			PaymentDate:     now,
			CreatedAt:       now,
		}
		if err := s.sales.InsertPayment(ctx, tx, &payment); err != nil {
			return apperror.FromDB(err)
		}

		ok, err := s.sales.ApplyPayment(ctx, tx, sale.ID, saledomain.PaymentUpdate{
			Amount:          amount,
			FullyPaid:       fullyPaid,
			PaymentMethodID: method.ID,
			At:              now,
		})
		if err != nil {
			return apperror.FromDB(err)
		}
		if !ok {
			return apperror.BusinessLogic(domain.ErrPaymentConflict.Error(), "sale balance changed concurrently, reload and retry")
		}

		saleRef := sale.ID
		if _, err := s.ledger.RecordTx(ctx, tx, ledgerdomain.Entry{
			OwnerID:     ownerID,
			SaleID:      &saleRef,
			SourceType:  ledgerdomain.SourceTypeSalePayment,
			SourceID:    payment.ID,
			Amount:      amount,
			Currency:    sale.Currency,
			Description: "Partial payment on sale",
			Metadata:    map[string]any{"payment_method_id": method.ID.String()},
			OccurredAt:  now,
		}); err != nil {
			return apperror.FromDB(err)
		}

		after, err = s.sales.FindByID(ctx, tx, ownerID, sale.ID)
		if err != nil {
			return apperror.FromDB(err)
		}
		if after == nil {
			return apperror.NotFound("sale")
		}
		return nil
	})
	if err != nil {
		s.log.Warn("receivable.payment.rejected",
			zap.String("owner_id", ownerID.String()),
			zap.String("sale_id", id.String()),
			zap.String("kind", string(apperror.KindOf(err))),
			zap.Error(err),
		)
		return domain.PaymentResult{}, err
	}

	result = domain.PaymentResult{
		PaymentID:        payment.ID.String(),
		PaymentAmount:    amount,
		NewAmountPaid:    after.AmountPaid.Round(2),
		NewAmountDue:     after.AmountDue.Round(2),
		NewPaymentStatus: after.PaymentStatus,
		IsFullyPaid:      after.PaymentStatus == saledomain.PaymentStatusPaid,
	}
	s.afterPayment(ctx, ownerID, before, payment, req.PaymentDetails, result)
	return result, nil
}

func (s *Service) afterPayment(ctx context.Context, ownerID snowflake.ID, before saledomain.Sale, payment saledomain.SalePayment, details map[string]string, result domain.PaymentResult) {
	outcome := "applied"
	if result.IsFullyPaid {
		outcome = "settled"
	}
	s.metrics.IncPartialPayment(outcome)

	if s.auditSvc != nil {
		targetID := before.ID.String()
		metadata := map[string]any{
			"payment_id":        result.PaymentID,
			"amount":            result.PaymentAmount.StringFixed(2),
			"new_amount_due":    result.NewAmountDue.StringFixed(2),
			"payment_method_id": payment.PaymentMethodID.String(),
		}
		if masked := masking.MaskPaymentDetails(details); masked != nil {
			metadata["payment_details"] = masked
		}
		if payment.Reference != "" {
			metadata["reference"] = masking.MaskReference(payment.Reference)
		}
		if err := s.auditSvc.AuditLog(ctx, &ownerID, "sale.payment.recorded", "sale", &targetID, metadata); err != nil {
			s.log.Warn("receivable.audit.failed", zap.Error(err))
		}
	}

	if result.IsFullyPaid && before.PaymentStatus != saledomain.PaymentStatusPaid {
		s.publish(ctx, revenuedomain.ComputeDelta(before, before.PaymentStatus, saledomain.PaymentStatusPaid, payment.PaymentDate))
	}

	s.log.Info("receivable.payment.recorded",
		zap.String("owner_id", ownerID.String()),
		zap.String("sale_id", before.ID.String()),
		zap.String("payment_id", result.PaymentID),
		zap.String("amount", result.PaymentAmount.StringFixed(2)),
		zap.Bool("fully_paid", result.IsFullyPaid),
	)
}

func (s *Service) publish(ctx context.Context, delta revenuedomain.RecognitionDelta) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), delta); err != nil {
		s.log.Warn("receivable.delta.publish_failed", zap.String("sale_id", delta.SaleID), zap.Error(err))
	}
}
