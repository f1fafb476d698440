package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type ProcessingSummary struct {
	BatchID        string          `json:"batch_id"`
	SaleIDs        []string        `json:"sale_ids"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalCOGS      decimal.Decimal `json:"total_cogs"`
	Profit         decimal.Decimal `json:"profit"`
	ItemsProcessed int             `json:"items_processed"`
}

// SaleRecord is a sale row as returned to callers.
type SaleRecord struct {
	Sale
	ProcessingSummary *ProcessingSummary `json:"processing_summary,omitempty"`
}

type ListFilter struct {
	Status     string
	CustomerID string
	From       *time.Time
	To         *time.Time
	Limit      int
}

type Service interface {
	ProcessSale(ctx context.Context, req SaleRequest, ownerID string) (SaleRecord, error)
	ReverseSale(ctx context.Context, saleID, ownerID string) error
	GetSale(ctx context.Context, saleID, ownerID string) (SaleRecord, error)
	ListSales(ctx context.Context, ownerID string, filter ListFilter) ([]Sale, error)
}

// Limiter throttles sale creation per owner.
type Limiter interface {
	Allow(ctx context.Context, ownerID snowflake.ID) (bool, error)
}

var (
	ErrInvalidOwner         = errors.New("invalid_owner")
	ErrInvalidShape         = errors.New("invalid_sale_shape")
	ErrInvalidProduct       = errors.New("invalid_product_id")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidUnitPrice     = errors.New("invalid_unit_price")
	ErrInvalidTotal         = errors.New("invalid_total_amount")
	ErrInvalidDiscount      = errors.New("invalid_discount_amount")
	ErrInvalidTax           = errors.New("invalid_tax_amount")
	ErrInvalidAmountPaid    = errors.New("invalid_amount_paid")
	ErrInvalidStatus        = errors.New("invalid_payment_status")
	ErrPaymentMethodMissing = errors.New("payment_method_required")
	ErrCustomerMissing      = errors.New("customer_required")
	ErrInvalidCustomer      = errors.New("invalid_customer_id")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidDate          = errors.New("invalid_date")
	ErrInvalidID            = errors.New("invalid_id")
	ErrRateLimited          = errors.New("rate_limited")
)
