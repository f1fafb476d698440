package service

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/usage/domain"
)

// CalculateProrata prices an upgrade linearly: the unused share of the
// current plan is credited against the new plan price, never below zero.
func CalculateProrata(in domain.ProrationInput) domain.ProrationQuote {
	remaining := int(math.Floor(in.CurrentEnd.Sub(in.Now).Hours() / 24))
	if remaining < 0 {
		remaining = 0
	}

	daily := decimal.Zero
	if in.CurrentDurationDays > 0 {
		daily = in.CurrentPlanPrice.Div(decimal.NewFromInt(int64(in.CurrentDurationDays)))
	}
	unused := daily.Mul(decimal.NewFromInt(int64(remaining)))
	prorata := in.NewPlanPrice.Sub(unused)
	if prorata.IsNegative() {
		prorata = decimal.Zero
	}

	return domain.ProrationQuote{
		RemainingDays:    remaining,
		CurrentDailyRate: daily.Round(2),
		UnusedAmount:     unused.Round(2),
		NewPlanPrice:     in.NewPlanPrice.Round(2),
		ProrataAmount:    prorata.Round(2),
	}
}
