package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/sale/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Create(sale).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Sale, error) {
	return r.find(db.WithContext(ctx), ownerID, id)
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Sale, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), ownerID, id)
}

func (r *repo) find(db *gorm.DB, ownerID, id snowflake.ID) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.Where("owner_id = ? AND id = ?", ownerID, id).Limit(1).Find(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter domain.ListQuery) ([]domain.Sale, error) {
	stmt := db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if filter.Status != "" {
		stmt = stmt.Where("payment_status = ?", filter.Status)
	}
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.From != nil {
		stmt = stmt.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("date < ?", *filter.To)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var items []domain.Sale
	err := stmt.Order("date DESC, id DESC").Find(&items).Error
	return items, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&domain.Sale{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) CountBatch(ctx context.Context, db *gorm.DB, ownerID, batchID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Sale{}).
		Where("owner_id = ? AND batch_id = ?", ownerID, batchID).
		Count(&count).Error
	return count, err
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, update domain.StatusUpdate) (bool, error) {
	values := map[string]any{
		"payment_status": update.To,
		"updated_at":     update.At,
	}
	if update.To == domain.PaymentStatusPaid {
		values["amount_paid"] = gorm.Expr("total_amount")
		values["amount_due"] = 0
	}
	if update.PaymentMethodID != nil {
		values["payment_method_id"] = *update.PaymentMethodID
	}

	result := db.WithContext(ctx).
		Model(&domain.Sale{}).
		Where("id = ? AND payment_status = ?", id, update.From).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ApplyPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, update domain.PaymentUpdate) (bool, error) {
	values := map[string]any{
		"payment_status": domain.PaymentStatusCredit,
		"amount_paid":    gorm.Expr("amount_paid + ?", update.Amount),
		"amount_due":     gorm.Expr("amount_due - ?", update.Amount),
		"updated_at":     update.At,
	}
	if update.FullyPaid {
		values["payment_status"] = domain.PaymentStatusPaid
		values["amount_paid"] = gorm.Expr("total_amount")
		values["amount_due"] = 0
		values["payment_method_id"] = update.PaymentMethodID
	}

	result := db.WithContext(ctx).
		Model(&domain.Sale{}).
		Where("id = ? AND payment_status IN ? AND amount_due >= ?", id,
			[]domain.PaymentStatus{domain.PaymentStatusCredit, domain.PaymentStatusPending},
			update.Amount).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.SalePayment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, ownerID, saleID snowflake.ID) ([]domain.SalePayment, error) {
	var items []domain.SalePayment
	err := db.WithContext(ctx).
		Where("owner_id = ? AND sale_id = ?", ownerID, saleID).
		Order("payment_date ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) DeletePayments(ctx context.Context, db *gorm.DB, saleID snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Delete(&domain.SalePayment{})
	return result.RowsAffected, result.Error
}
