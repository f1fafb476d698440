package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/receivable/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) OpenBalances(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]saledomain.Sale, error) {
	var items []saledomain.Sale
	err := db.WithContext(ctx).
		Where("owner_id = ? AND payment_status IN ? AND amount_due > 0", ownerID,
			[]saledomain.PaymentStatus{saledomain.PaymentStatusCredit, saledomain.PaymentStatusPending}).
		Order("date ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) CustomerCredit(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]domain.CustomerCreditRow, error) {
	var rows []domain.CustomerCreditRow
	err := db.WithContext(ctx).Raw(
		`SELECT
			s.customer_id AS customer_id,
			COALESCE(MAX(c.name), '') AS customer_name,
			COALESCE(SUM(s.total_amount), 0) AS total,
			COALESCE(SUM(s.amount_due), 0) AS outstanding,
			COALESCE(SUM(s.amount_paid), 0) AS paid,
			COUNT(*) AS sales_count,
			COUNT(CASE WHEN s.payment_status = ? THEN 1 END) AS paid_count
		FROM sales s
		LEFT JOIN customers c ON c.id = s.customer_id
		WHERE s.owner_id = ? AND s.customer_id IS NOT NULL AND s.is_credit_sale = ?
		GROUP BY s.customer_id
		ORDER BY outstanding DESC, s.customer_id ASC`,
		saledomain.PaymentStatusPaid, ownerID, true,
	).Scan(&rows).Error
	return rows, err
}
