package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/apperror"
	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	"github.com/smallbiznis/salesengine/internal/clock"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/salesengine/internal/observability/metrics"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	paymentmethoddomain "github.com/smallbiznis/salesengine/internal/paymentmethod/domain"
	"github.com/smallbiznis/salesengine/internal/revenue/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	Repo           domain.Repository
	Sales          saledomain.Repository
	Ledger         ledgerdomain.Service
	PaymentMethods paymentmethoddomain.Service
	Publisher      domain.EventPublisher
	AuditSvc       auditdomain.Service       `optional:"true"`
	Metrics        *obsmetrics.EngineMetrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	clock          clock.Clock
	repo           domain.Repository
	sales          saledomain.Repository
	ledger         ledgerdomain.Service
	paymentMethods paymentmethoddomain.Service
	publisher      domain.EventPublisher
	auditSvc       auditdomain.Service
	metrics        *obsmetrics.EngineMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("revenue.service"),
		clock:          p.Clock,
		repo:           p.Repo,
		sales:          p.Sales,
		ledger:         p.Ledger,
		paymentMethods: p.PaymentMethods,
		publisher:      p.Publisher,
		auditSvc:       p.AuditSvc,
		metrics:        p.Metrics,
	}
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, saleID string, newStatus string, paymentMethodID *string, paymentDetails map[string]string) (saledomain.SaleRecord, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return saledomain.SaleRecord{}, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner is required")
	}
	id, err := snowflake.ParseString(strings.TrimSpace(saleID))
	if err != nil || id <= 0 {
		return saledomain.SaleRecord{}, apperror.Invalid("id", domain.ErrInvalidID, "sale id is not valid")
	}
	target, ok := saledomain.ParsePaymentStatus(newStatus)
	if !ok {
		return saledomain.SaleRecord{}, apperror.Invalid("payment_status", domain.ErrInvalidStatus,
			fmt.Sprintf("payment_status %q must be Paid, Credit or Pending", newStatus))
	}

	var methodID *snowflake.ID
	if target == saledomain.PaymentStatusPaid {
		if paymentMethodID == nil || strings.TrimSpace(*paymentMethodID) == "" {
			return saledomain.SaleRecord{}, apperror.Invalid("payment_method_id", domain.ErrMethodRequired, "a payment method is required to mark a sale paid")
		}
		method, err := s.paymentMethods.Validate(ctx, ownerID, *paymentMethodID, paymentDetails)
		if err != nil {
			return saledomain.SaleRecord{}, err
		}
		methodID = &method.ID
	}

	now := s.clock.Now()
	var (
		before  saledomain.Sale
		updated *saledomain.Sale
		changed bool
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
		updated = sale

		if sale.PaymentStatus == target {
			return nil
		}
		if !domain.CanTransition(sale.PaymentStatus, target) {
			return &apperror.Error{
				Kind:    apperror.KindBusinessLogic,
				Field:   "payment_status",
				Code:    domain.ErrInvalidTransition.Error(),
				Message: fmt.Sprintf("cannot change payment status from %s to %s", sale.PaymentStatus, target),
				Err:     domain.ErrInvalidTransition,
			}
		}
		if target == saledomain.PaymentStatusCredit && sale.CustomerID == nil {
			return apperror.Invalid("customer_id", domain.ErrCustomerRequired, "a customer is required for credit sales")
		}

		ok, err := s.sales.UpdateStatus(ctx, tx, sale.ID, saledomain.StatusUpdate{
			From:            sale.PaymentStatus,
			To:              target,
			PaymentMethodID: methodID,
			At:              now,
		})
		if err != nil {
			return apperror.FromDB(err)
		}
		if !ok {
			return apperror.BusinessLogic(domain.ErrStatusConflict.Error(), "sale status changed concurrently, reload and retry")
		}

		if target == saledomain.PaymentStatusPaid && sale.AmountDue.IsPositive() {
			saleID := sale.ID
			if _, err := s.ledger.RecordTx(ctx, tx, ledgerdomain.Entry{
				OwnerID:     ownerID,
				SaleID:      &saleID,
				SourceType:  ledgerdomain.SourceTypeSaleSettlement,
				SourceID:    sale.ID,
				Amount:      sale.AmountDue,
				Currency:    sale.Currency,
				Description: "Sale settled in full",
				OccurredAt:  now,
			}); err != nil {
				return apperror.FromDB(err)
			}
		}

		updated, err = s.sales.FindByID(ctx, tx, ownerID, sale.ID)
		if err != nil {
			return apperror.FromDB(err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return saledomain.SaleRecord{}, err
	}
	if !changed {
		return saledomain.SaleRecord{Sale: *updated}, nil
	}

	s.metrics.IncStatusTransition(string(before.PaymentStatus), string(target))
	s.audit(ctx, ownerID, before, target)
	s.publish(ctx, domain.ComputeDelta(before, before.PaymentStatus, target, now))
	return saledomain.SaleRecord{Sale: *updated}, nil
}

func (s *Service) RecognizedRevenue(ctx context.Context, ownerID string, from, to time.Time) (domain.RevenueSummary, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return domain.RevenueSummary{}, err
	}
	from, to = from.UTC(), to.UTC()
	if !to.After(from) {
		return domain.RevenueSummary{}, apperror.Invalid("to", domain.ErrInvalidWindow, "to must be after from")
	}

	row, err := apperror.RetryRead(ctx, func(ctx context.Context) (domain.SummaryRow, error) {
		row, err := s.repo.Summarize(ctx, s.db, owner, from, to)
		return row, apperror.FromDB(err)
	})
	if err != nil {
		return domain.RevenueSummary{}, err
	}
	return domain.RevenueSummary{
		OwnerID:             owner.String(),
		From:                from,
		To:                  to,
		RecognizedRevenue:   row.Recognized.Round(2),
		UnrecognizedRevenue: row.Unrecognized.Round(2),
		RecognizedProfit:    row.Profit.Round(2),
		PaidSales:           row.PaidCount,
		OpenSales:           row.OpenCount,
	}, nil
}

// IntegrityFlags lists sales that break a balance rule. Nothing is corrected.
func (s *Service) IntegrityFlags(ctx context.Context, ownerID string) ([]domain.IntegrityFlag, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return nil, err
	}
	sales, err := apperror.RetryRead(ctx, func(ctx context.Context) ([]saledomain.Sale, error) {
		items, err := s.repo.Suspicious(ctx, s.db, owner)
		return items, apperror.FromDB(err)
	})
	if err != nil {
		return nil, err
	}

	flags := make([]domain.IntegrityFlag, 0, len(sales))
	for _, sale := range sales {
		for _, code := range domain.Classify(sale) {
			flags = append(flags, domain.IntegrityFlag{
				SaleID:        sale.ID.String(),
				Code:          code,
				PaymentStatus: sale.PaymentStatus,
				TotalAmount:   sale.TotalAmount,
				AmountPaid:    sale.AmountPaid,
				AmountDue:     sale.AmountDue,
			})
		}
	}
	return flags, nil
}

func (s *Service) publish(ctx context.Context, delta domain.RecognitionDelta) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), delta); err != nil {
		s.log.Warn("revenue.delta.publish_failed",
			zap.String("sale_id", delta.SaleID),
			zap.String("new_status", string(delta.NewStatus)),
			zap.Error(err),
		)
	}
}

func (s *Service) audit(ctx context.Context, ownerID snowflake.ID, before saledomain.Sale, target saledomain.PaymentStatus) {
	if s.auditSvc == nil {
		return
	}
	targetID := before.ID.String()
	if err := s.auditSvc.AuditLog(ctx, &ownerID, "sale.payment_status.updated", "sale", &targetID, map[string]any{
		"from":       string(before.PaymentStatus),
		"to":         string(target),
		"amount_due": before.AmountDue.StringFixed(2),
	}); err != nil {
		s.log.Warn("revenue.audit.failed", zap.Error(err))
	}
}

func parseOwner(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, apperror.Invalid("owner_id", domain.ErrInvalidOwner, "owner_id is not a valid identifier")
	}
	return id, nil
}
