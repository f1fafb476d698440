package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	"gorm.io/gorm"
)

// RecognitionDelta tells reporting consumers how a status change moved
// recognized revenue and profit.
type RecognitionDelta struct {
	SaleID        string                   `json:"sale_id"`
	OwnerID       string                   `json:"owner_id"`
	OldStatus     saledomain.PaymentStatus `json:"old_status"`
	NewStatus     saledomain.PaymentStatus `json:"new_status"`
	RevenueImpact decimal.Decimal          `json:"revenue_impact"`
	ProfitImpact  decimal.Decimal          `json:"profit_impact"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

type RevenueSummary struct {
	OwnerID             string          `json:"owner_id"`
	From                time.Time       `json:"from"`
	To                  time.Time       `json:"to"`
	RecognizedRevenue   decimal.Decimal `json:"recognized_revenue"`
	UnrecognizedRevenue decimal.Decimal `json:"unrecognized_revenue"`
	RecognizedProfit    decimal.Decimal `json:"recognized_profit"`
	PaidSales           int64           `json:"paid_sales"`
	OpenSales           int64           `json:"open_sales"`
}

type IntegrityCode string

const (
	IntegrityCreditWithZeroDue      IntegrityCode = "credit_with_zero_due"
	IntegrityBalanceMismatch        IntegrityCode = "balance_mismatch"
	IntegrityPaidWithOutstandingDue IntegrityCode = "paid_with_outstanding_due"
)

type IntegrityFlag struct {
	SaleID        string                   `json:"sale_id"`
	Code          IntegrityCode            `json:"code"`
	PaymentStatus saledomain.PaymentStatus `json:"payment_status"`
	TotalAmount   decimal.Decimal          `json:"total_amount"`
	AmountPaid    decimal.Decimal          `json:"amount_paid"`
	AmountDue     decimal.Decimal          `json:"amount_due"`
}

// SummaryRow is the aggregate read for one owner and window.
type SummaryRow struct {
	Recognized   decimal.Decimal
	Unrecognized decimal.Decimal
	Profit       decimal.Decimal
	PaidCount    int64
	OpenCount    int64
}

type Repository interface {
	Summarize(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, from, to time.Time) (SummaryRow, error)
	// Suspicious returns sales that may break a balance rule. Callers decide
	// which rule each one breaks.
	Suspicious(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]saledomain.Sale, error)
}

type Service interface {
	UpdatePaymentStatus(ctx context.Context, saleID string, newStatus string, paymentMethodID *string, paymentDetails map[string]string) (saledomain.SaleRecord, error)
	RecognizedRevenue(ctx context.Context, ownerID string, from, to time.Time) (RevenueSummary, error)
	IntegrityFlags(ctx context.Context, ownerID string) ([]IntegrityFlag, error)
}

// EventPublisher delivers recognition deltas after commit.
type EventPublisher interface {
	Publish(ctx context.Context, delta RecognitionDelta) error
}

var (
	ErrInvalidOwner      = errors.New("invalid_owner")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidStatus     = errors.New("invalid_payment_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrMethodRequired    = errors.New("payment_method_required")
	ErrCustomerRequired  = errors.New("customer_required")
	ErrInvalidWindow     = errors.New("invalid_window")
	ErrStatusConflict    = errors.New("status_conflict")
)
