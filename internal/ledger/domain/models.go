package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SourceType names the business event a ledger transaction was derived from.
type SourceType string

const (
	SourceTypeSale           SourceType = "sale"            // money received when the sale was created
	SourceTypeSaleSettlement SourceType = "sale_settlement" // outstanding balance settled by a status change
	SourceTypeSalePayment    SourceType = "sale_payment"    // partial payment against a sale
	SourceTypeInvoice        SourceType = "invoice"         // invoice marked paid
)

type Kind string

const KindMoneyIn Kind = "money_in"

// Transaction is a single-entry money-in record. At most one row exists per
// (source_type, source_id, kind).
type Transaction struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	OwnerID     snowflake.ID      `json:"owner_id" gorm:"not null;index"`
	SaleID      *snowflake.ID     `json:"sale_id,omitempty" gorm:"index"`
	InvoiceID   *snowflake.ID     `json:"invoice_id,omitempty" gorm:"index"`
	SourceType  SourceType        `json:"source_type" gorm:"type:text;not null;uniqueIndex:ux_ledger_transactions_source,priority:1"`
	SourceID    snowflake.ID      `json:"source_id" gorm:"not null;uniqueIndex:ux_ledger_transactions_source,priority:2"`
	Kind        Kind              `json:"kind" gorm:"type:text;not null;uniqueIndex:ux_ledger_transactions_source,priority:3"`
	Amount      decimal.Decimal   `json:"amount" gorm:"type:numeric(18,2);not null"`
	Currency    string            `json:"currency" gorm:"type:text;not null"`
	Description string            `json:"description" gorm:"type:text"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:json"`
	OccurredAt  time.Time         `json:"occurred_at" gorm:"not null"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null"`
}

func (Transaction) TableName() string { return "ledger_transactions" }
