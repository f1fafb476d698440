package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Entry describes a money-in event to record.
type Entry struct {
	OwnerID     snowflake.ID
	SaleID      *snowflake.ID
	InvoiceID   *snowflake.ID
	SourceType  SourceType
	SourceID    snowflake.ID
	Amount      decimal.Decimal
	Currency    string
	Description string
	Metadata    map[string]any
	OccurredAt  time.Time
}

type Service interface {
	// RecordTx writes entry inside tx. It reports false when the source was
	// already recorded.
	RecordTx(ctx context.Context, tx *gorm.DB, entry Entry) (bool, error)
	DeleteForSaleTx(ctx context.Context, tx *gorm.DB, saleID snowflake.ID) (int64, error)
	ListBySale(ctx context.Context, saleID snowflake.ID) ([]Transaction, error)
}

var (
	ErrInvalidOwner      = errors.New("invalid_owner")
	ErrInvalidSourceType = errors.New("invalid_source_type")
	ErrInvalidSourceID   = errors.New("invalid_source_id")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidCurrency   = errors.New("invalid_currency")
)
