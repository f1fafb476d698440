package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/apperror"
)

// SingleItemSale is the legacy one-product request shape.
type SingleItemSale struct {
	ProductID   string
	Quantity    *int64
	UnitPrice   *decimal.Decimal
	TotalAmount *decimal.Decimal
}

type SaleItemInput struct {
	ProductID string           `json:"product_id"`
	Quantity  *int64           `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// SaleRequest holds exactly one of Single or Items once decoded.
type SaleRequest struct {
	Single *SingleItemSale
	Items  []SaleItemInput

	CustomerID      string
	PaymentMethodID string
	PaymentDetails  map[string]string
	PaymentStatus   string
	AmountPaid      *decimal.Decimal
	DiscountAmount  *decimal.Decimal
	TaxAmount       *decimal.Decimal
	Currency        string
	Date            string
	Notes           string

	// PayloadSize is the raw body length, kept for failure logs.
	PayloadSize int
}

type wireSaleRequest struct {
	ProductID   *string          `json:"product_id"`
	Quantity    *int64           `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	TotalAmount *decimal.Decimal `json:"total_amount"`

	SaleItems []SaleItemInput `json:"sale_items"`

	CustomerID      string            `json:"customer_id"`
	PaymentMethodID string            `json:"payment_method_id"`
	PaymentMethod   string            `json:"payment_method"`
	PaymentDetails  map[string]string `json:"payment_details"`
	PaymentStatus   string            `json:"payment_status"`
	AmountPaid      *decimal.Decimal  `json:"amount_paid"`
	DiscountAmount  *decimal.Decimal  `json:"discount_amount"`
	TaxAmount       *decimal.Decimal  `json:"tax_amount"`
	Currency        string            `json:"currency"`
	Date            string            `json:"date"`
	Notes           string            `json:"notes"`
}

// DecodeSaleRequest parses a request body into the tagged union. The shape is
// decided here once: a sale_items key selects Items, any single-item field
// selects Single.
func DecodeSaleRequest(body []byte) (SaleRequest, error) {
	var wire wireSaleRequest
	if err := json.Unmarshal(body, &wire); err != nil {
		return SaleRequest{PayloadSize: len(body)}, apperror.JSONParse(err)
	}

	req := SaleRequest{
		CustomerID:      wire.CustomerID,
		PaymentMethodID: wire.PaymentMethodID,
		PaymentDetails:  wire.PaymentDetails,
		PaymentStatus:   wire.PaymentStatus,
		AmountPaid:      wire.AmountPaid,
		DiscountAmount:  wire.DiscountAmount,
		TaxAmount:       wire.TaxAmount,
		Currency:        wire.Currency,
		Date:            wire.Date,
		Notes:           wire.Notes,
		PayloadSize:     len(body),
	}
	if req.PaymentMethodID == "" {
		req.PaymentMethodID = wire.PaymentMethod
	}

	switch {
	case wire.SaleItems != nil:
		req.Items = wire.SaleItems
	case wire.ProductID != nil || wire.Quantity != nil || wire.UnitPrice != nil:
		single := &SingleItemSale{
			Quantity:    wire.Quantity,
			UnitPrice:   wire.UnitPrice,
			TotalAmount: wire.TotalAmount,
		}
		if wire.ProductID != nil {
			single.ProductID = *wire.ProductID
		}
		req.Single = single
	}
	return req, nil
}

type NormalizedItem struct {
	ProductID snowflake.ID
	Quantity  int64
	UnitPrice decimal.Decimal
}

func (i NormalizedItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity)).Round(2)
}

// NormalizedSale is the canonical multi-item form every sale is processed in.
type NormalizedSale struct {
	Items           []NormalizedItem
	CustomerID      *snowflake.ID
	PaymentMethodID string
	PaymentDetails  map[string]string
	PaymentStatus   PaymentStatus
	AmountPaid      decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxAmount       decimal.Decimal
	Currency        string
	Date            *time.Time
	Notes           string
}

func (n NormalizedSale) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range n.Items {
		total = total.Add(item.Total())
	}
	return total
}

// ParsePaymentStatus accepts any casing of the three states.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return PaymentStatusPending, true
	case "credit":
		return PaymentStatusCredit, true
	case "paid":
		return PaymentStatusPaid, true
	}
	return "", false
}
