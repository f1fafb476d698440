// Package saletest seeds sale rows directly for packages that read or settle them.
package saletest

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/sale/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type Seed struct {
	OwnerID    snowflake.ID
	CustomerID *snowflake.ID
	ProductID  snowflake.ID
	Status     domain.PaymentStatus
	Total      string
	Paid       string
	COGS       string
	Date       time.Time
	Currency   string
}

// Insert writes one balanced sale row built from seed.
func Insert(t testing.TB, db *gorm.DB, node *snowflake.Node, seed Seed) domain.Sale {
	t.Helper()
	total := decimal.RequireFromString(seed.Total)
	paid := decimal.Zero
	if seed.Paid != "" {
		paid = decimal.RequireFromString(seed.Paid)
	}
	cogs := decimal.Zero
	if seed.COGS != "" {
		cogs = decimal.RequireFromString(seed.COGS)
	}
	currency := seed.Currency
	if currency == "" {
		currency = "NGN"
	}
	date := seed.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	productID := seed.ProductID
	if productID == 0 {
		productID = node.Generate()
	}

	sale := domain.Sale{
		ID:            node.Generate(),
		OwnerID:       seed.OwnerID,
		BatchID:       node.Generate(),
		CustomerID:    seed.CustomerID,
		ProductID:     productID,
		Quantity:      1,
		UnitPrice:     total,
		TotalAmount:   total,
		TotalCOGS:     cogs,
		GrossProfit:   total.Sub(cogs),
		Currency:      currency,
		PaymentStatus: seed.Status,
		AmountPaid:    paid,
		AmountDue:     total.Sub(paid),
		IsCreditSale:  seed.Status != domain.PaymentStatusPaid,
		Date:          date,
	}
	require.NoError(t, db.Create(&sale).Error)
	return sale
}
