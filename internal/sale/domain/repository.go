package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentUpdate moves a sale's balances after an installment.
type PaymentUpdate struct {
	Amount          decimal.Decimal
	FullyPaid       bool
	PaymentMethodID snowflake.ID
	At              time.Time
}

// StatusUpdate settles or re-labels a sale.
type StatusUpdate struct {
	From            PaymentStatus
	To              PaymentStatus
	PaymentMethodID *snowflake.ID
	At              time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sale *Sale) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Sale, error)
	// LockByID reads the row with FOR UPDATE where the dialect supports it.
	LockByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Sale, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListQuery) ([]Sale, error)
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (bool, error)
	CountBatch(ctx context.Context, db *gorm.DB, ownerID, batchID snowflake.ID) (int64, error)

	// UpdateStatus applies update only while the row still holds update.From.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, update StatusUpdate) (bool, error)
	// ApplyPayment reduces amount_due only while it still covers the amount.
	ApplyPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, update PaymentUpdate) (bool, error)

	InsertPayment(ctx context.Context, db *gorm.DB, payment *SalePayment) error
	ListPayments(ctx context.Context, db *gorm.DB, ownerID, saleID snowflake.ID) ([]SalePayment, error)
	DeletePayments(ctx context.Context, db *gorm.DB, saleID snowflake.ID) (int64, error)
}

type ListQuery struct {
	Status     PaymentStatus
	CustomerID *snowflake.ID
	From       *time.Time
	To         *time.Time
	Limit      int
}
