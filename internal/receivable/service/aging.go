package service

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/receivable/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
)

var hundred = decimal.NewFromInt(100)

// GetAccountsReceivableAging buckets open balances by whole days since the sale date.
func (s *Service) GetAccountsReceivableAging(ctx context.Context, ownerID string, asOf *time.Time) (domain.AgingReport, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return domain.AgingReport{}, err
	}
	at := s.clock.Now()
	if asOf != nil && !asOf.IsZero() {
		at = asOf.UTC()
	}

	sales, err := apperror.RetryRead(ctx, func(ctx context.Context) ([]saledomain.Sale, error) {
		items, err := s.repo.OpenBalances(ctx, s.db, owner)
		return items, apperror.FromDB(err)
	})
	if err != nil {
		return domain.AgingReport{}, err
	}

	cfg := s.billing.Get()
	buckets := make([]domain.AgingBucket, len(cfg.AgingBuckets))
	index := make(map[string]int, len(cfg.AgingBuckets))
	for i, b := range cfg.AgingBuckets {
		buckets[i] = domain.AgingBucket{Label: b.Label, Amount: decimal.Zero, Percentage: decimal.Zero}
		index[b.Label] = i
	}

	total := decimal.Zero
	for _, sale := range sales {
		label := cfg.BucketFor(AgeInDays(sale.Date, at))
		i := index[label]
		buckets[i].Amount = buckets[i].Amount.Add(sale.AmountDue)
		buckets[i].Count++
		total = total.Add(sale.AmountDue)
	}
	for i := range buckets {
		buckets[i].Amount = buckets[i].Amount.Round(2)
		if total.IsPositive() {
			buckets[i].Percentage = buckets[i].Amount.Div(total).Mul(hundred).Round(2)
		}
	}

	return domain.AgingReport{
		OwnerID: owner.String(),
		AsOf:    at,
		Total:   total.Round(2),
		Buckets: buckets,
	}, nil
}

// AgeInDays returns the whole days elapsed from date to asOf, floored.
func AgeInDays(date, asOf time.Time) int {
	return int(math.Floor(asOf.Sub(date).Hours() / 24))
}

// GetCustomerCreditSummary reports credit exposure per customer.
func (s *Service) GetCustomerCreditSummary(ctx context.Context, ownerID string) ([]domain.CustomerCredit, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := apperror.RetryRead(ctx, func(ctx context.Context) ([]domain.CustomerCreditRow, error) {
		rows, err := s.repo.CustomerCredit(ctx, s.db, owner)
		return rows, apperror.FromDB(err)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.CustomerCredit, 0, len(rows))
	for _, row := range rows {
		rate := decimal.Zero
		if row.SalesCount > 0 {
			rate = decimal.NewFromInt(row.PaidCount).
				Div(decimal.NewFromInt(row.SalesCount)).
				Mul(hundred).
				Round(2)
		}
		out = append(out, domain.CustomerCredit{
			CustomerID:            row.CustomerID.String(),
			CustomerName:          row.CustomerName,
			TotalCreditSales:      row.Total.Round(2),
			Outstanding:           row.Outstanding.Round(2),
			Paid:                  row.Paid.Round(2),
			SalesCount:            row.SalesCount,
			PaidSalesCount:        row.PaidCount,
			PaymentCompletionRate: rate,
			CompletionRateBasis:   domain.CompletionRateByCount,
		})
	}
	return out, nil
}
