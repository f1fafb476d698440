package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/consistency/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const (
	missingCustomerCond = `s.owner_id = ? AND s.customer_id IS NOT NULL
		AND NOT EXISTS (SELECT 1 FROM customers c WHERE c.id = s.customer_id AND c.owner_id = s.owner_id)`
	orphanPaymentCond = `p.owner_id = ?
		AND NOT EXISTS (SELECT 1 FROM sales s WHERE s.id = p.sale_id)`
	orphanLedgerCond = `l.owner_id = ? AND (
		(l.sale_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM sales s WHERE s.id = l.sale_id))
		OR (l.invoice_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM invoices i WHERE i.id = l.invoice_id)))`
)

func (r *repo) SalesWithMissingCustomer(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]domain.Ref, error) {
	return scanRefs(db.WithContext(ctx).Raw(
		`SELECT s.id AS id, s.customer_id AS related_id, s.payment_status AS detail
		 FROM sales s
		 WHERE `+missingCustomerCond+`
		 ORDER BY s.id`,
		ownerID,
	))
}

func (r *repo) SalesWithMissingProduct(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]domain.Ref, error) {
	return scanRefs(db.WithContext(ctx).Raw(
		`SELECT s.id AS id, s.product_id AS related_id
		 FROM sales s
		 WHERE s.owner_id = ?
		   AND NOT EXISTS (SELECT 1 FROM products pr WHERE pr.id = s.product_id)
		 ORDER BY s.id`,
		ownerID,
	))
}

func (r *repo) OrphanPayments(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]domain.Ref, error) {
	return scanRefs(db.WithContext(ctx).Raw(
		`SELECT p.id AS id, p.sale_id AS related_id
		 FROM sale_payments p
		 WHERE `+orphanPaymentCond+`
		 ORDER BY p.id`,
		ownerID,
	))
}

func (r *repo) OrphanLedgerEntries(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]domain.Ref, error) {
	return scanRefs(db.WithContext(ctx).Raw(
		`SELECT l.id AS id, l.source_id AS related_id, l.source_type AS detail
		 FROM ledger_transactions l
		 WHERE `+orphanLedgerCond+`
		 ORDER BY l.id`,
		ownerID,
	))
}

func (r *repo) NegativeStock(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]domain.Ref, error) {
	return scanRefs(db.WithContext(ctx).Raw(
		`SELECT id, name AS detail
		 FROM products
		 WHERE owner_id = ? AND (quantity < 0 OR reserved_quantity < 0)
		 ORDER BY id`,
		ownerID,
	))
}

func (r *repo) ClearCustomer(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, saleIDs []snowflake.ID) (int64, error) {
	if len(saleIDs) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).
		Table("sales").
		Where("owner_id = ? AND id IN ? AND payment_status <> ?", ownerID, saleIDs, saledomain.PaymentStatusCredit).
		Update("customer_id", nil)
	return result.RowsAffected, result.Error
}

func (r *repo) DeletePayments(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) (int64, error) {
	return deleteIDs(ctx, db, "sale_payments", ownerID, ids)
}

func (r *repo) DeleteLedgerEntries(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) (int64, error) {
	return deleteIDs(ctx, db, "ledger_transactions", ownerID, ids)
}

func deleteIDs(ctx context.Context, db *gorm.DB, table string, ownerID snowflake.ID, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Exec(
		"DELETE FROM "+table+" WHERE owner_id = ? AND id IN ?",
		ownerID, ids,
	)
	return result.RowsAffected, result.Error
}

func scanRefs(stmt *gorm.DB) ([]domain.Ref, error) {
	var refs []domain.Ref
	err := stmt.Scan(&refs).Error
	return refs, err
}
