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

type PaymentRequest struct {
	Amount          decimal.Decimal   `json:"amount"`
	PaymentMethodID string            `json:"payment_method_id"`
	PaymentDetails  map[string]string `json:"payment_details,omitempty"`
	Reference       string            `json:"reference,omitempty"`
}

type PaymentResult struct {
	PaymentID        string                   `json:"payment_id"`
	PaymentAmount    decimal.Decimal          `json:"payment_amount"`
	NewAmountPaid    decimal.Decimal          `json:"new_amount_paid"`
	NewAmountDue     decimal.Decimal          `json:"new_amount_due"`
	NewPaymentStatus saledomain.PaymentStatus `json:"new_payment_status"`
	IsFullyPaid      bool                     `json:"is_fully_paid"`
}

type AgingBucket struct {
	Label      string          `json:"label"`
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

type AgingReport struct {
	OwnerID string          `json:"owner_id"`
	AsOf    time.Time       `json:"as_of"`
	Total   decimal.Decimal `json:"total"`
	Buckets []AgingBucket   `json:"buckets"`
}

// Bucket returns the bucket with label, or a zero bucket.
func (r AgingReport) Bucket(label string) AgingBucket {
	for _, b := range r.Buckets {
		if b.Label == label {
			return b
		}
	}
	return AgingBucket{Label: label}
}

// CustomerCredit summarizes a customer's credit sales. PaymentCompletionRate
// is the share of sales settled, counted per sale rather than by amount.
type CustomerCredit struct {
	CustomerID            string          `json:"customer_id"`
	CustomerName          string          `json:"customer_name"`
	TotalCreditSales      decimal.Decimal `json:"total_credit_sales"`
	Outstanding           decimal.Decimal `json:"outstanding"`
	Paid                  decimal.Decimal `json:"paid"`
	SalesCount            int64           `json:"sales_count"`
	PaidSalesCount        int64           `json:"paid_sales_count"`
	PaymentCompletionRate decimal.Decimal `json:"payment_completion_rate"`
	CompletionRateBasis   string          `json:"completion_rate_basis"`
}

// CompletionRateByCount marks PaymentCompletionRate as a ratio of sale counts.
const CompletionRateByCount = "count"

// CustomerCreditRow is the per-customer aggregate read from the store.
type CustomerCreditRow struct {
	CustomerID   snowflake.ID
	CustomerName string
	Total        decimal.Decimal
	Outstanding  decimal.Decimal
	Paid         decimal.Decimal
	SalesCount   int64
	PaidCount    int64
}

type Repository interface {
	// OpenBalances returns Credit and Pending sales that still owe money.
	OpenBalances(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]saledomain.Sale, error)
	CustomerCredit(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]CustomerCreditRow, error)
}

type Service interface {
	RecordPartialPayment(ctx context.Context, saleID string, req PaymentRequest) (PaymentResult, error)
	ListPayments(ctx context.Context, saleID string) ([]saledomain.SalePayment, error)
	GetAccountsReceivableAging(ctx context.Context, ownerID string, asOf *time.Time) (AgingReport, error)
	GetCustomerCreditSummary(ctx context.Context, ownerID string) ([]CustomerCredit, error)
}

var (
	ErrInvalidOwner      = errors.New("invalid_owner")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrMethodRequired    = errors.New("payment_method_required")
	ErrPartialNotAllowed = errors.New("partial_payment_not_allowed")
	ErrExceedsBalance    = errors.New("payment_exceeds_balance")
	ErrCustomerRequired  = errors.New("customer_required")
	ErrPaymentConflict   = errors.New("payment_conflict")
)
