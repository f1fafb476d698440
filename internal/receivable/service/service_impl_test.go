package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/clock"
	"github.com/smallbiznis/salesengine/internal/config"
	customerdomain "github.com/smallbiznis/salesengine/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/salesengine/internal/ledger/service"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	paymentmethoddomain "github.com/smallbiznis/salesengine/internal/paymentmethod/domain"
	paymentmethodrepo "github.com/smallbiznis/salesengine/internal/paymentmethod/repository"
	paymentmethodservice "github.com/smallbiznis/salesengine/internal/paymentmethod/service"
	"github.com/smallbiznis/salesengine/internal/receivable/domain"
	"github.com/smallbiznis/salesengine/internal/receivable/repository"
	revenuedomain "github.com/smallbiznis/salesengine/internal/revenue/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	salerepo "github.com/smallbiznis/salesengine/internal/sale/repository"
	"github.com/smallbiznis/salesengine/internal/sale/saletest"
	"github.com/smallbiznis/salesengine/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type capturePublisher struct {
	mu     sync.Mutex
	deltas []revenuedomain.RecognitionDelta
}

func (p *capturePublisher) Publish(_ context.Context, delta revenuedomain.RecognitionDelta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deltas = append(p.deltas, delta)
	return nil
}

type fixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	svc       domain.Service
	publisher *capturePublisher
	owner     snowflake.ID
	customer  snowflake.ID
	ctx       context.Context
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t,
		&saledomain.Sale{}, &saledomain.SalePayment{}, &ledgerdomain.Transaction{},
		&paymentmethoddomain.PaymentMethod{}, &customerdomain.Customer{},
	)
	node := dbtest.Node(t)
	now := time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)
	owner := snowflake.ID(5150)
	ctx := ownercontext.WithOwnerID(context.Background(), owner)

	methods := paymentmethodservice.New(paymentmethodservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: paymentmethodrepo.Provide()})
	_, err := methods.Create(ctx, paymentmethoddomain.CreateRequest{Name: "Cash", Type: "cash"})
	require.NoError(t, err)
	_, err = methods.Create(ctx, paymentmethoddomain.CreateRequest{Name: "Cheque", Type: "cheque"})
	require.NoError(t, err)

	customer := customerdomain.Customer{ID: node.Generate(), OwnerID: owner, Name: "Ada Stores", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(&customer).Error)

	pub := &capturePublisher{}
	svc := New(Params{
		DB:             db,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          clock.NewFakeClock(now),
		Billing:        config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Repo:           repository.Provide(),
		Sales:          salerepo.Provide(),
		Ledger:         ledgerservice.NewService(ledgerservice.Params{DB: db, Log: zap.NewNop(), GenID: node}),
		PaymentMethods: methods,
		Publisher:      pub,
	})
	return &fixture{db: db, node: node, svc: svc, publisher: pub, owner: owner, customer: customer.ID, ctx: ctx, now: now}
}

func (f *fixture) creditSale(t *testing.T, total, paid string, age int) saledomain.Sale {
	t.Helper()
	customer := f.customer
	return saletest.Insert(t, f.db, f.node, saletest.Seed{
		OwnerID:    f.owner,
		CustomerID: &customer,
		Status:     saledomain.PaymentStatusCredit,
		Total:      total,
		Paid:       paid,
		COGS:       "50",
		Date:       f.now.AddDate(0, 0, -age),
	})
}

func cash(amount int64) domain.PaymentRequest {
	return domain.PaymentRequest{Amount: decimal.NewFromInt(amount), PaymentMethodID: "cash"}
}

func TestRecordPartialPayment_ThenSettle(t *testing.T) {
	f := newFixture(t)
	sale := f.creditSale(t, "300", "", 1)

	first, err := f.svc.RecordPartialPayment(f.ctx, sale.ID.String(), cash(100))
	require.NoError(t, err)
	assert.Equal(t, "100.00", first.NewAmountPaid.StringFixed(2))
	assert.Equal(t, "200.00", first.NewAmountDue.StringFixed(2))
	assert.Equal(t, saledomain.PaymentStatusCredit, first.NewPaymentStatus)
	assert.False(t, first.IsFullyPaid)
	assert.NotEmpty(t, first.PaymentID)
	assert.Empty(t, f.publisher.deltas)

	second, err := f.svc.RecordPartialPayment(f.ctx, sale.ID.String(), cash(200))
	require.NoError(t, err)
	assert.Equal(t, "300.00", second.NewAmountPaid.StringFixed(2))
	assert.Equal(t, "0.00", second.NewAmountDue.StringFixed(2))
	assert.Equal(t, saledomain.PaymentStatusPaid, second.NewPaymentStatus)
	assert.True(t, second.IsFullyPaid)

	payments, err := f.svc.ListPayments(f.ctx, sale.ID.String())
	require.NoError(t, err)
	require.Len(t, payments, 2)

	var entries []ledgerdomain.Transaction
	require.NoError(t, f.db.Where("source_type = ?", ledgerdomain.SourceTypeSalePayment).Find(&entries).Error)
	assert.Len(t, entries, 2)

	require.Len(t, f.publisher.deltas, 1)
	assert.Equal(t, saledomain.PaymentStatusPaid, f.publisher.deltas[0].NewStatus)
	assert.True(t, f.publisher.deltas[0].RevenueImpact.Equal(decimal.NewFromInt(300)))

	_, err = f.svc.RecordPartialPayment(f.ctx, sale.ID.String(), cash(1))
	assert.ErrorIs(t, err, apperror.BusinessLogic(domain.ErrPartialNotAllowed.Error(), ""))
}

func TestRecordPartialPayment_ExceedingBalanceChangesNothing(t *testing.T) {
	cases := map[string]string{
		"far above balance": "400",
		"one cent above":    "300.01",
	}
	for name, amount := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			sale := f.creditSale(t, "300", "", 1)

			_, err := f.svc.RecordPartialPayment(f.ctx, sale.ID.String(), domain.PaymentRequest{
				Amount:          decimal.RequireFromString(amount),
				PaymentMethodID: "cash",
			})
			require.Error(t, err)
			assert.Equal(t, apperror.KindBusinessLogic, apperror.KindOf(err))
			assert.Contains(t, err.Error(), "exceeds outstanding balance")

			var count int64
			require.NoError(t, f.db.Model(&saledomain.SalePayment{}).Count(&count).Error)
			assert.Zero(t, count)
			require.NoError(t, f.db.Model(&ledgerdomain.Transaction{}).Count(&count).Error)
			assert.Zero(t, count)

			var reloaded saledomain.Sale
			require.NoError(t, f.db.First(&reloaded, sale.ID).Error)
			assert.Equal(t, "300.00", reloaded.AmountDue.StringFixed(2))
			assert.True(t, reloaded.AmountPaid.IsZero())
			assert.Equal(t, saledomain.PaymentStatusCredit, reloaded.PaymentStatus)
			assert.Empty(t, f.publisher.deltas)
		})
	}
}

func TestRecordPartialPayment_SettlesWithinRounding(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		stored string
	}{
		{name: "exactly due", amount: "300", stored: "300.00"},
		{name: "half cent short", amount: "299.995", stored: "300.00"},
		{name: "one cent short", amount: "299.99", stored: "299.99"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			sale := f.creditSale(t, "300", "", 1)

			result, err := f.svc.RecordPartialPayment(f.ctx, sale.ID.String(), domain.PaymentRequest{
				Amount:          decimal.RequireFromString(tc.amount),
				PaymentMethodID: "cash",
			})
			require.NoError(t, err)
			assert.True(t, result.IsFullyPaid)
			assert.Equal(t, saledomain.PaymentStatusPaid, result.NewPaymentStatus)
			assert.Equal(t, "0.00", result.NewAmountDue.StringFixed(2))
			assert.Equal(t, "300.00", result.NewAmountPaid.StringFixed(2))
			assert.Equal(t, tc.stored, result.PaymentAmount.StringFixed(2))

			var payments []saledomain.SalePayment
			require.NoError(t, f.db.Where("sale_id = ?", sale.ID).Find(&payments).Error)
			require.Len(t, payments, 1)
			assert.Equal(t, tc.stored, payments[0].Amount.StringFixed(2))
			require.Len(t, f.publisher.deltas, 1)
		})
	}
}

func TestRecordPartialPayment_Validation(t *testing.T) {
	f := newFixture(t)
	sale := f.creditSale(t, "300", "", 1)

	_, err := f.svc.RecordPartialPayment(f.ctx, sale.ID.String(), cash(0))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = f.svc.RecordPartialPayment(f.ctx, sale.ID.String(), domain.PaymentRequest{Amount: decimal.NewFromInt(10)})
	assert.Equal(t, "payment_method_id", apperror.As(err).Field)

	_, err = f.svc.RecordPartialPayment(f.ctx, sale.ID.String(), domain.PaymentRequest{
		Amount:          decimal.NewFromInt(10),
		PaymentMethodID: "cheque",
	})
	require.Error(t, err)
	assert.Equal(t, "payment_details", apperror.As(err).Field)

	_, err = f.svc.RecordPartialPayment(f.ctx, f.node.Generate().String(), cash(10))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = f.svc.RecordPartialPayment(context.Background(), sale.ID.String(), cash(10))
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestRecordPartialPayment_PendingWithoutCustomerMustSettle(t *testing.T) {
	f := newFixture(t)
	sale := saletest.Insert(t, f.db, f.node, saletest.Seed{
		OwnerID: f.owner, Status: saledomain.PaymentStatusPending, Total: "80", Date: f.now,
	})

	_, err := f.svc.RecordPartialPayment(f.ctx, sale.ID.String(), cash(30))
	assert.Equal(t, apperror.KindBusinessLogic, apperror.KindOf(err))

	result, err := f.svc.RecordPartialPayment(f.ctx, sale.ID.String(), cash(80))
	require.NoError(t, err)
	assert.True(t, result.IsFullyPaid)
}

func TestAging_BucketsByDays(t *testing.T) {
	f := newFixture(t)
	f.creditSale(t, "100", "", 15)
	f.creditSale(t, "200", "", 45)
	f.creditSale(t, "300", "", 100)
	f.creditSale(t, "500", "500", 10)
	saletest.Insert(t, f.db, f.node, saletest.Seed{
		OwnerID: f.owner + 1, Status: saledomain.PaymentStatusCredit, Total: "999", Date: f.now.AddDate(0, 0, -5),
	})

	report, err := f.svc.GetAccountsReceivableAging(f.ctx, f.owner.String(), nil)
	require.NoError(t, err)

	assert.Equal(t, "600.00", report.Total.StringFixed(2))
	assert.Equal(t, f.now, report.AsOf)
	require.Len(t, report.Buckets, 4)

	current := report.Bucket("current")
	assert.Equal(t, "100.00", current.Amount.StringFixed(2))
	assert.Equal(t, "16.67", current.Percentage.StringFixed(2))
	assert.Equal(t, 1, current.Count)

	thirty := report.Bucket("30_days")
	assert.Equal(t, "200.00", thirty.Amount.StringFixed(2))
	assert.Equal(t, "33.33", thirty.Percentage.StringFixed(2))

	assert.True(t, report.Bucket("60_days").Amount.IsZero())

	old := report.Bucket("90_plus_days")
	assert.Equal(t, "300.00", old.Amount.StringFixed(2))
	assert.Equal(t, "50.00", old.Percentage.StringFixed(2))
}

func TestAging_ExplicitAsOfAndEmpty(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.GetAccountsReceivableAging(f.ctx, f.owner.String(), nil)
	require.NoError(t, err)
	assert.True(t, report.Total.IsZero())
	for _, bucket := range report.Buckets {
		assert.True(t, bucket.Percentage.IsZero())
	}

	f.creditSale(t, "100", "", 15)
	asOf := f.now.AddDate(0, 0, 20)
	report, err = f.svc.GetAccountsReceivableAging(f.ctx, f.owner.String(), &asOf)
	require.NoError(t, err)
	assert.Equal(t, "100.00", report.Bucket("30_days").Amount.StringFixed(2))

	_, err = f.svc.GetAccountsReceivableAging(f.ctx, "nope", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestAgeInDays_Floors(t *testing.T) {
	asOf := time.Date(2024, 3, 31, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, AgeInDays(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), asOf))
	assert.Equal(t, 29, AgeInDays(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), asOf))
}

func TestCustomerCreditSummary_CountRatio(t *testing.T) {
	f := newFixture(t)
	f.creditSale(t, "1", "1", 3)
	require.NoError(t, f.db.Model(&saledomain.Sale{}).Where("total_amount = ?", 1).Update("payment_status", saledomain.PaymentStatusPaid).Error)
	f.creditSale(t, "1000000", "", 3)

	summary, err := f.svc.GetCustomerCreditSummary(f.ctx, f.owner.String())
	require.NoError(t, err)
	require.Len(t, summary, 1)

	row := summary[0]
	assert.Equal(t, f.customer.String(), row.CustomerID)
	assert.Equal(t, "Ada Stores", row.CustomerName)
	assert.Equal(t, "1000001.00", row.TotalCreditSales.StringFixed(2))
	assert.Equal(t, "1000000.00", row.Outstanding.StringFixed(2))
	assert.Equal(t, "1.00", row.Paid.StringFixed(2))
	assert.Equal(t, int64(2), row.SalesCount)
	assert.Equal(t, int64(1), row.PaidSalesCount)
	assert.Equal(t, "50.00", row.PaymentCompletionRate.StringFixed(2))
	assert.Equal(t, domain.CompletionRateByCount, row.CompletionRateBasis)
}
