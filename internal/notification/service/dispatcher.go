package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/notification/domain"
	"github.com/smallbiznis/salesengine/internal/notification/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sendTimeout = 15 * time.Second

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Email email.Provider
}

type Dispatcher struct {
	db    *gorm.DB
	log   *zap.Logger
	email email.Provider
	// wait is set in tests to observe delivery.
	wait func()
}

func New(p Params) domain.Dispatcher {
	return &Dispatcher{
		db:    p.DB,
		log:   p.Log.Named("notification.dispatcher"),
		email: p.Email,
	}
}

func (d *Dispatcher) LowStock(ctx context.Context, alert domain.LowStockAlert) {
	d.dispatch(ctx, alert.OwnerID, "low_stock", map[string]any{
		"product_id":   alert.ProductID.String(),
		"product_name": alert.ProductName,
		"quantity":     alert.Quantity,
		"threshold":    alert.Threshold,
	})
}

func (d *Dispatcher) InvoicePaid(ctx context.Context, notice domain.InvoicePaidNotice) {
	d.dispatch(ctx, notice.OwnerID, "invoice_paid", map[string]any{
		"invoice_id": notice.InvoiceID.String(),
		"number":     notice.Number,
		"amount":     notice.TotalAmount.StringFixed(2),
		"currency":   notice.Currency,
		"paid_at":    notice.PaidAt.Format("2006-01-02"),
	})
}

// dispatch detaches from the request context so delivery outlives the request.
func (d *Dispatcher) dispatch(ctx context.Context, ownerID snowflake.ID, templateName string, data map[string]any) {
	base := context.WithoutCancel(ctx)
	go func() {
		if d.wait != nil {
			defer d.wait()
		}
		ctx, cancel := context.WithTimeout(base, sendTimeout)
		defer cancel()

		to, err := d.recipient(ctx, ownerID)
		if err != nil || to == "" {
			d.log.Warn("notification.recipient.missing",
				zap.String("owner_id", ownerID.String()),
				zap.String("template", templateName),
				zap.Error(err),
			)
			return
		}
		if err := d.email.SendTemplate(ctx, []string{to}, templateName, data); err != nil {
			d.log.Warn("notification.send.failed",
				zap.String("owner_id", ownerID.String()),
				zap.String("template", templateName),
				zap.Error(err),
			)
			return
		}
		d.log.Debug("notification.sent", zap.String("owner_id", ownerID.String()), zap.String("template", templateName))
	}()
}

func (d *Dispatcher) recipient(ctx context.Context, ownerID snowflake.ID) (string, error) {
	var emails []string
	err := d.db.WithContext(ctx).
		Table("users").
		Where("id = ?", ownerID).
		Limit(1).
		Pluck("email", &emails).Error
	if err != nil || len(emails) == 0 {
		return "", err
	}
	return emails[0], nil
}
