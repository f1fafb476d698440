package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/revenue/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Summarize(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) (domain.SummaryRow, error) {
	var row domain.SummaryRow
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(CASE WHEN payment_status = ? THEN total_amount ELSE 0 END), 0) AS recognized,
			COALESCE(SUM(CASE WHEN payment_status IN (?, ?) THEN amount_due ELSE 0 END), 0) AS unrecognized,
			COALESCE(SUM(CASE WHEN payment_status = ? THEN gross_profit ELSE 0 END), 0) AS profit,
			COUNT(CASE WHEN payment_status = ? THEN 1 END) AS paid_count,
			COUNT(CASE WHEN payment_status IN (?, ?) THEN 1 END) AS open_count
		FROM sales
		WHERE owner_id = ? AND date >= ? AND date < ?`,
		saledomain.PaymentStatusPaid,
		saledomain.PaymentStatusCredit, saledomain.PaymentStatusPending,
		saledomain.PaymentStatusPaid,
		saledomain.PaymentStatusPaid,
		saledomain.PaymentStatusCredit, saledomain.PaymentStatusPending,
		ownerID, from, to,
	).Scan(&row).Error
	return row, err
}

func (r *repo) Suspicious(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]saledomain.Sale, error) {
	// Bound as a float so computed expressions compare numerically on sqlite.
	tolerance := saledomain.AmountTolerance.InexactFloat64()

	var items []saledomain.Sale
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Where(
			db.Where("payment_status = ? AND amount_due = 0", saledomain.PaymentStatusCredit).
				Or("payment_status = ? AND amount_due > ?", saledomain.PaymentStatusPaid, tolerance).
				Or("ABS(amount_paid + amount_due - total_amount) > ?", tolerance),
		).
		Order("date ASC, id ASC").
		Find(&items).Error
	return items, err
}
