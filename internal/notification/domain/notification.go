package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type LowStockAlert struct {
	OwnerID     snowflake.ID
	ProductID   snowflake.ID
	ProductName string
	Quantity    int64
	Threshold   int64
}

type InvoicePaidNotice struct {
	OwnerID     snowflake.ID
	InvoiceID   snowflake.ID
	Number      string
	TotalAmount decimal.Decimal
	Currency    string
	PaidAt      time.Time
}

// Dispatcher delivers notifications without blocking the caller. Delivery
// failures are logged and never returned.
type Dispatcher interface {
	LowStock(ctx context.Context, alert LowStockAlert)
	InvoicePaid(ctx context.Context, notice InvoicePaidNotice)
}
