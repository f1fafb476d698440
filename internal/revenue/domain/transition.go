package domain

import (
	"time"

	"github.com/shopspring/decimal"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
)

var transitions = map[saledomain.PaymentStatus][]saledomain.PaymentStatus{
	saledomain.PaymentStatusPending: {saledomain.PaymentStatusCredit, saledomain.PaymentStatusPaid},
	saledomain.PaymentStatusCredit:  {saledomain.PaymentStatusPaid},
	saledomain.PaymentStatusPaid:    {},
}

// CanTransition reports whether a sale may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to saledomain.PaymentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ComputeDelta returns the change in recognized revenue and profit caused by
// moving sale from old to new.
func ComputeDelta(sale saledomain.Sale, old, new saledomain.PaymentStatus, at time.Time) RecognitionDelta {
	revenue := decimal.Zero
	profit := decimal.Zero
	if new == saledomain.PaymentStatusPaid {
		revenue = revenue.Add(sale.TotalAmount)
		profit = profit.Add(sale.GrossProfit)
	}
	if old == saledomain.PaymentStatusPaid {
		revenue = revenue.Sub(sale.TotalAmount)
		profit = profit.Sub(sale.GrossProfit)
	}
	return RecognitionDelta{
		SaleID:        sale.ID.String(),
		OwnerID:       sale.OwnerID.String(),
		OldStatus:     old,
		NewStatus:     new,
		RevenueImpact: revenue,
		ProfitImpact:  profit,
		OccurredAt:    at,
	}
}

// Classify returns every integrity rule sale breaks.
func Classify(sale saledomain.Sale) []IntegrityCode {
	var codes []IntegrityCode
	if sale.PaymentStatus == saledomain.PaymentStatusCredit && sale.AmountDue.IsZero() {
		codes = append(codes, IntegrityCreditWithZeroDue)
	}
	if sale.PaymentStatus == saledomain.PaymentStatusPaid && sale.AmountDue.GreaterThan(saledomain.AmountTolerance) {
		codes = append(codes, IntegrityPaidWithOutstandingDue)
	}
	if !sale.Balanced() {
		codes = append(codes, IntegrityBalanceMismatch)
	}
	return codes
}
