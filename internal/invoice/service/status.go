package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/apperror"
	invoicedomain "github.com/smallbiznis/salesengine/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/salesengine/internal/notification/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UpdateStatus moves an invoice along the transition table. Repeating the
// current status is a no-op that keeps existing timestamps.
func (s *Service) UpdateStatus(ctx context.Context, invoiceID, newStatus string) (invoicedomain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	id, err := parseID(invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	target, ok := invoicedomain.ParseStatus(newStatus)
	if !ok {
		return invoicedomain.Invoice{}, apperror.Invalid("status", invoicedomain.ErrInvalidStatus,
			fmt.Sprintf("status %q is not a valid invoice status", newStatus))
	}

	now := s.clock.Now()
	var (
		from    invoicedomain.Status
		updated *invoicedomain.Invoice
		changed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.LockByID(ctx, tx, ownerID, id)
		if err != nil {
			return apperror.FromDB(err)
		}
		if invoice == nil {
			return apperror.NotFound("invoice")
		}
		from = invoice.Status
		updated = invoice

		if invoice.Status == target {
			return nil
		}
		if !invoicedomain.CanTransition(invoice.Status, target) {
			return &apperror.Error{
				Kind:    apperror.KindBusinessLogic,
				Field:   "status",
				Code:    invoicedomain.ErrInvalidTransition.Error(),
				Message: fmt.Sprintf("cannot change invoice status from %s to %s", invoice.Status, target),
				Err:     invoicedomain.ErrInvalidTransition,
			}
		}

		ok, err := s.repo.UpdateStatus(ctx, tx, invoice.ID, invoicedomain.StatusChange{From: invoice.Status, To: target, At: now})
		if err != nil {
			return apperror.FromDB(err)
		}
		if !ok {
			return apperror.BusinessLogic(invoicedomain.ErrStatusConflict.Error(), "invoice status changed concurrently, reload and retry")
		}

		switch target {
		case invoicedomain.StatusPaid:
			if err := s.settle(ctx, tx, invoice, now); err != nil {
				return err
			}
		case invoicedomain.StatusCancelled:
			for _, item := range invoice.Items {
				if item.ProductID == nil {
					continue
				}
				if err := s.products.ReleaseReservation(ctx, tx, ownerID, *item.ProductID, item.Quantity, now); err != nil {
					return apperror.FromDB(err)
				}
			}
		}

		updated, err = s.repo.FindByID(ctx, tx, ownerID, invoice.ID)
		if err != nil {
			return apperror.FromDB(err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if !changed {
		return *updated, nil
	}

	s.metrics.IncInvoiceTransition(string(from), string(target))
	s.emitAudit(ctx, "invoice.status.updated", updated, map[string]any{
		"previous_status": string(from),
	})
	if target == invoicedomain.StatusPaid && s.notifier != nil {
		s.notifier.InvoicePaid(ctx, notificationdomain.InvoicePaidNotice{
			OwnerID:     ownerID,
			InvoiceID:   updated.ID,
			Number:      updated.Number(),
			TotalAmount: updated.TotalAmount,
			Currency:    updated.Currency,
			PaidAt:      now,
		})
	}
	return *updated, nil
}

// settle records the money-in entry and fulfils reserved stock.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, now time.Time) error {
	if invoice.TotalAmount.IsPositive() {
		invoiceID := invoice.ID
		if _, err := s.ledger.RecordTx(ctx, tx, ledgerdomain.Entry{
			OwnerID:     invoice.OwnerID,
			InvoiceID:   &invoiceID,
			SourceType:  ledgerdomain.SourceTypeInvoice,
			SourceID:    invoice.ID,
			Amount:      invoice.TotalAmount,
			Currency:    invoice.Currency,
			Description: "Invoice " + invoice.Number() + " paid",
			OccurredAt:  now,
		}); err != nil {
			return apperror.FromDB(err)
		}
	}
	for _, item := range invoice.Items {
		if item.ProductID == nil {
			continue
		}
		if err := s.products.DeductFulfilled(ctx, tx, invoice.OwnerID, *item.ProductID, item.Quantity, now); err != nil {
			return apperror.FromDB(err)
		}
	}
	return nil
}

// MarkOverdue claims open invoices past due in batches and returns how many
// moved to overdue.
func (s *Service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		var moved []invoicedomain.Invoice
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			claimed, err := s.repo.ClaimOverdue(ctx, tx, now, s.batchSize)
			if err != nil {
				return err
			}
			if len(claimed) == 0 {
				return nil
			}
			ids := make([]snowflake.ID, 0, len(claimed))
			for _, invoice := range claimed {
				ids = append(ids, invoice.ID)
			}
			if _, err := s.repo.ForceOverdue(ctx, tx, ids, now); err != nil {
				return err
			}
			moved = claimed
			return nil
		})
		if err != nil {
			return total, apperror.FromDB(err)
		}
		for _, invoice := range moved {
			s.metrics.IncInvoiceTransition(string(invoice.Status), string(invoicedomain.StatusOverdue))
		}
		total += len(moved)
		if len(moved) < s.batchSize {
			break
		}
	}
	if total > 0 {
		s.log.Info("invoice.overdue.marked", zap.Int("count", total), zap.Time("as_of", now))
	}
	return total, nil
}

func (s *Service) GetOverdueSummary(ctx context.Context, ownerID string) (invoicedomain.OverdueSummary, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return invoicedomain.OverdueSummary{}, err
	}
	invoices, err := apperror.RetryRead(ctx, func(ctx context.Context) ([]invoicedomain.Invoice, error) {
		items, err := s.repo.ListByStatus(ctx, s.db, owner, invoicedomain.StatusOverdue)
		return items, apperror.FromDB(err)
	})
	if err != nil {
		return invoicedomain.OverdueSummary{}, err
	}

	today := truncateDay(s.clock.Now())
	summary := invoicedomain.OverdueSummary{
		OwnerID:          owner.String(),
		TotalOutstanding: decimal.Zero,
		Invoices:         make([]invoicedomain.OverdueInvoice, 0, len(invoices)),
	}
	for _, invoice := range invoices {
		days := int(today.Sub(truncateDay(invoice.DueDate)).Hours() / 24)
		if days < 0 {
			days = 0
		}
		row := invoicedomain.OverdueInvoice{
			InvoiceID:     invoice.ID.String(),
			InvoiceNumber: invoice.Number(),
			TotalAmount:   invoice.TotalAmount,
			DueDate:       invoice.DueDate,
			DaysOverdue:   days,
		}
		if invoice.CustomerID != nil {
			row.CustomerID = invoice.CustomerID.String()
		}
		summary.Invoices = append(summary.Invoices, row)
		summary.TotalOutstanding = summary.TotalOutstanding.Add(invoice.TotalAmount)
	}
	summary.Count = len(summary.Invoices)
	summary.TotalOutstanding = summary.TotalOutstanding.Round(2)
	return summary, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
