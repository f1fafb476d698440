package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) NextNumber(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int64, error) {
	var next int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(invoice_number), 0) + 1
		 FROM invoices
		 WHERE owner_id = ?`,
		ownerID,
	).Scan(&next).Error
	return next, err
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Invoice, error) {
	return r.find(db.WithContext(ctx), ownerID, id)
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Invoice, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), ownerID, id)
}

func (r *repo) find(db *gorm.DB, ownerID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("owner_id = ? AND id = ?", ownerID, id).Limit(1).Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, change domain.StatusChange) (bool, error) {
	values := map[string]any{
		"status":     change.To,
		"updated_at": change.At,
	}
	switch change.To {
	case domain.StatusSent:
		values["sent_at"] = gorm.Expr("COALESCE(sent_at, ?)", change.At)
	case domain.StatusPaid:
		values["paid_date"] = change.At
	case domain.StatusCancelled:
		values["cancelled_at"] = change.At
	}

	result := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ? AND status = ?", id, change.From).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ClaimOverdue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Invoice, error) {
	var items []domain.Invoice
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status IN ? AND due_date < ?", []domain.Status{domain.StatusDraft, domain.StatusSent}, now).
		Order("due_date ASC, id ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *repo) ForceOverdue(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id IN ? AND status IN ?", ids, []domain.Status{domain.StatusDraft, domain.StatusSent}).
		Updates(map[string]any{
			"status":     domain.StatusOverdue,
			"updated_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *repo) ListByStatus(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, status domain.Status) ([]domain.Invoice, error) {
	var items []domain.Invoice
	err := db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, status).
		Order("due_date ASC, id ASC").
		Find(&items).Error
	return items, err
}
