package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	pending, credit, paid := saledomain.PaymentStatusPending, saledomain.PaymentStatusCredit, saledomain.PaymentStatusPaid

	assert.True(t, CanTransition(pending, credit))
	assert.True(t, CanTransition(pending, paid))
	assert.True(t, CanTransition(credit, paid))
	assert.True(t, CanTransition(paid, paid))

	assert.False(t, CanTransition(credit, pending))
	assert.False(t, CanTransition(paid, credit))
	assert.False(t, CanTransition(paid, pending))
}

func TestComputeDelta(t *testing.T) {
	sale := saledomain.Sale{
		ID:          1,
		OwnerID:     2,
		TotalAmount: decimal.NewFromInt(300),
		GrossProfit: decimal.NewFromInt(120),
	}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	delta := ComputeDelta(sale, saledomain.PaymentStatusCredit, saledomain.PaymentStatusPaid, at)
	assert.True(t, delta.RevenueImpact.Equal(decimal.NewFromInt(300)))
	assert.True(t, delta.ProfitImpact.Equal(decimal.NewFromInt(120)))

	delta = ComputeDelta(sale, saledomain.PaymentStatusPaid, saledomain.PaymentStatusCredit, at)
	assert.True(t, delta.RevenueImpact.Equal(decimal.NewFromInt(-300)))

	delta = ComputeDelta(sale, saledomain.PaymentStatusPending, saledomain.PaymentStatusCredit, at)
	assert.True(t, delta.RevenueImpact.IsZero())
	assert.True(t, delta.ProfitImpact.IsZero())
}
