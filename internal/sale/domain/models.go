package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusCredit  PaymentStatus = "Credit"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// AmountTolerance absorbs rounding when comparing money totals.
var AmountTolerance = decimal.RequireFromString("0.01")

// Sale is one line of a sale request. Lines created together share BatchID.
type Sale struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	OwnerID         snowflake.ID    `json:"owner_id" gorm:"not null;index:idx_sales_owner_date,priority:1"`
	BatchID         snowflake.ID    `json:"batch_id" gorm:"not null;index"`
	CustomerID      *snowflake.ID   `json:"customer_id,omitempty" gorm:"index"`
	ProductID       snowflake.ID    `json:"product_id" gorm:"not null;index"`
	Quantity        int64           `json:"quantity" gorm:"not null"`
	UnitPrice       decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,2);not null"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:numeric(18,2);not null"`
	TotalCOGS       decimal.Decimal `json:"total_cogs" gorm:"column:total_cogs;type:numeric(18,2);not null"`
	GrossProfit     decimal.Decimal `json:"gross_profit" gorm:"type:numeric(18,2);not null"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" gorm:"type:numeric(18,2);not null"`
	TaxAmount       decimal.Decimal `json:"tax_amount" gorm:"type:numeric(18,2);not null"`
	Currency        string          `json:"currency" gorm:"type:text;not null"`
	PaymentMethodID *snowflake.ID   `json:"payment_method_id,omitempty"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:text;not null;index"`
	AmountPaid      decimal.Decimal `json:"amount_paid" gorm:"type:numeric(18,2);not null"`
	AmountDue       decimal.Decimal `json:"amount_due" gorm:"type:numeric(18,2);not null"`
	IsCreditSale    bool            `json:"is_credit_sale" gorm:"not null;default:false"`
	Notes           string          `json:"notes,omitempty" gorm:"type:text"`
	Date            time.Time       `json:"date" gorm:"not null;index:idx_sales_owner_date,priority:2"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"not null"`
}

func (Sale) TableName() string { return "sales" }

// Balanced reports whether paid and due add up to the total.
func (s Sale) Balanced() bool {
	return s.AmountPaid.Add(s.AmountDue).Sub(s.TotalAmount).Abs().LessThanOrEqual(AmountTolerance)
}

// SalePayment is an append-only installment against a sale.
type SalePayment struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	OwnerID         snowflake.ID    `json:"owner_id" gorm:"not null;index"`
	SaleID          snowflake.ID    `json:"sale_id" gorm:"not null;index"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(18,2);not null"`
	PaymentMethodID snowflake.ID    `json:"payment_method_id" gorm:"not null"`
	Reference       string          `json:"reference,omitempty" gorm:"type:text"`
	PaymentDate     time.Time       `json:"payment_date" gorm:"not null"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`
}

func (SalePayment) TableName() string { return "sale_payments" }
