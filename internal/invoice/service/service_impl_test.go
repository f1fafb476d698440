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
	customerservice "github.com/smallbiznis/salesengine/internal/customer/service"
	invoicedomain "github.com/smallbiznis/salesengine/internal/invoice/domain"
	"github.com/smallbiznis/salesengine/internal/invoice/repository"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/salesengine/internal/ledger/service"
	notificationdomain "github.com/smallbiznis/salesengine/internal/notification/domain"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	productdomain "github.com/smallbiznis/salesengine/internal/product/domain"
	productrepo "github.com/smallbiznis/salesengine/internal/product/repository"
	usagedomain "github.com/smallbiznis/salesengine/internal/usage/domain"
	"github.com/smallbiznis/salesengine/internal/usage/usagetest"
	"github.com/smallbiznis/salesengine/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu   sync.Mutex
	paid []notificationdomain.InvoicePaidNotice
}

func (n *recordingNotifier) LowStock(context.Context, notificationdomain.LowStockAlert) {}

func (n *recordingNotifier) InvoicePaid(_ context.Context, notice notificationdomain.InvoicePaidNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid = append(n.paid, notice)
}

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
	svc      *Service
	usage    usagedomain.Service
	notifier *recordingNotifier
	owner    snowflake.ID
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	models := []any{
		&invoicedomain.Invoice{}, &invoicedomain.InvoiceItem{}, &productdomain.Product{},
		&ledgerdomain.Transaction{}, &customerdomain.Customer{},
	}
	db := dbtest.Open(t, append(models, usagetest.Models...)...)
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC))
	usage := usagetest.New(db, node, clk)
	owner := usagetest.SeedOwner(t, db, node)
	notifier := &recordingNotifier{}

	svc := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Cfg:       config.Config{DefaultCurrency: "NGN", InvoiceDueDays: 14, Scheduler: config.SchedulerConfig{BatchSize: 2}},
		Clock:     clk,
		Repo:      repository.Provide(),
		Products:  productrepo.Provide(),
		Customers: customerservice.New(customerservice.Params{DB: db, Log: zap.NewNop(), GenID: node}),
		Ledger:    ledgerservice.NewService(ledgerservice.Params{DB: db, Log: zap.NewNop(), GenID: node}),
		Usage:     usage,
		Notifier:  notifier,
	}).(*Service)

	return &fixture{
		db:       db,
		node:     node,
		clk:      clk,
		svc:      svc,
		usage:    usage,
		notifier: notifier,
		owner:    owner,
		ctx:      ownercontext.WithOwnerID(context.Background(), owner),
	}
}

func (f *fixture) product(t *testing.T, qty int64) productdomain.Product {
	t.Helper()
	p := productdomain.Product{
		ID:        f.node.Generate(),
		OwnerID:   f.owner,
		Name:      "Crate",
		UnitPrice: decimal.NewFromInt(40),
		CostPrice: decimal.NewFromInt(25),
		Quantity:  qty,
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) productdomain.Product {
	t.Helper()
	var p productdomain.Product
	require.NoError(t, f.db.First(&p, id).Error)
	return p
}

func (f *fixture) draft(t *testing.T, product productdomain.Product, qty int64) invoicedomain.Invoice {
	t.Helper()
	invoice, err := f.svc.CreateInvoice(f.ctx, invoicedomain.CreateRequest{
		Items: []invoicedomain.CreateItem{{ProductID: product.ID.String(), Quantity: qty}},
	})
	require.NoError(t, err)
	return invoice
}

func TestCreateInvoice_ReservesStockAndCountsUsage(t *testing.T) {
	f := newFixture(t)
	product := f.product(t, 10)

	invoice := f.draft(t, product, 3)
	assert.Equal(t, invoicedomain.StatusDraft, invoice.Status)
	assert.Equal(t, int64(1), invoice.InvoiceNumber)
	assert.Equal(t, "INV-000001", invoice.Number())
	assert.Equal(t, "120.00", invoice.TotalAmount.StringFixed(2))
	assert.Equal(t, "NGN", invoice.Currency)
	assert.Equal(t, f.clk.Now().AddDate(0, 0, 14), invoice.DueDate)
	require.Len(t, invoice.Items, 1)
	assert.Equal(t, "Crate", invoice.Items[0].Description)

	stored := f.reload(t, product.ID)
	assert.Equal(t, int64(10), stored.Quantity)
	assert.Equal(t, int64(3), stored.ReservedQuantity)

	status, err := f.usage.CheckUsageLimit(f.ctx, f.owner.String(), usagedomain.FeatureInvoices)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.CurrentCount)

	second := f.draft(t, product, 1)
	assert.Equal(t, int64(2), second.InvoiceNumber)
}

func TestCreateInvoice_ReservationBeyondStockRollsBack(t *testing.T) {
	f := newFixture(t)
	product := f.product(t, 2)

	_, err := f.svc.CreateInvoice(f.ctx, invoicedomain.CreateRequest{
		Items: []invoicedomain.CreateItem{{ProductID: product.ID.String(), Quantity: 3}},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, f.reload(t, product.ID).ReservedQuantity)
}

func TestCreateInvoice_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateInvoice(f.ctx, invoicedomain.CreateRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidItems)

	_, err = f.svc.CreateInvoice(f.ctx, invoicedomain.CreateRequest{
		Items: []invoicedomain.CreateItem{{Description: "Consulting", Quantity: 0}},
	})
	assert.Equal(t, "items[0].quantity", apperror.As(err).Field)

	_, err = f.svc.CreateInvoice(f.ctx, invoicedomain.CreateRequest{
		Items: []invoicedomain.CreateItem{{ProductID: f.node.Generate().String(), Quantity: 1}},
	})
	assert.Equal(t, apperror.KindProductNotFound, apperror.KindOf(err))

	_, err = f.svc.CreateInvoice(f.ctx, invoicedomain.CreateRequest{
		CustomerID: f.node.Generate().String(),
		Items:      []invoicedomain.CreateItem{{Description: "Consulting", Quantity: 1, UnitPrice: ptr(decimal.NewFromInt(5))}},
	})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestUpdateStatus_SentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	invoice := f.draft(t, f.product(t, 5), 1)

	sent, err := f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "sent")
	require.NoError(t, err)
	require.NotNil(t, sent.SentAt)
	first := *sent.SentAt

	f.clk.Advance(2 * time.Hour)
	again, err := f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "SENT")
	require.NoError(t, err)
	require.NotNil(t, again.SentAt)
	assert.True(t, first.Equal(*again.SentAt))
}

func TestUpdateStatus_PaidDeductsStockAndRecordsLedger(t *testing.T) {
	f := newFixture(t)
	product := f.product(t, 5)
	invoice := f.draft(t, product, 2)

	_, err := f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "sent")
	require.NoError(t, err)
	paid, err := f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "paid")
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidDate)

	stored := f.reload(t, product.ID)
	assert.Equal(t, int64(3), stored.Quantity)
	assert.Zero(t, stored.ReservedQuantity)

	var entries []ledgerdomain.Transaction
	require.NoError(t, f.db.Where("invoice_id = ?", invoice.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "80.00", entries[0].Amount.StringFixed(2))

	require.Len(t, f.notifier.paid, 1)
	assert.Equal(t, invoice.ID, f.notifier.paid[0].InvoiceID)

	_, err = f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "paid")
	require.NoError(t, err)
	require.NoError(t, f.db.Where("invoice_id = ?", invoice.ID).Find(&entries).Error)
	assert.Len(t, entries, 1)
	assert.Len(t, f.notifier.paid, 1)
}

func TestUpdateStatus_PaidDeductionCapsAtZero(t *testing.T) {
	f := newFixture(t)
	product := f.product(t, 4)
	invoice := f.draft(t, product, 4)
	require.NoError(t, f.db.Model(&productdomain.Product{}).Where("id = ?", product.ID).Update("quantity", 1).Error)

	_, err := f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "sent")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "paid")
	require.NoError(t, err)

	stored := f.reload(t, product.ID)
	assert.Zero(t, stored.Quantity)
	assert.Zero(t, stored.ReservedQuantity)
}

func TestUpdateStatus_IllegalTransitions(t *testing.T) {
	f := newFixture(t)
	invoice := f.draft(t, f.product(t, 5), 1)

	_, err := f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "paid")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidTransition)
	assert.Equal(t, apperror.KindBusinessLogic, apperror.KindOf(err))

	_, err = f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "archived")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStatus)

	_, err = f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "cancelled")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "sent")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidTransition)
}

func TestUpdateStatus_CancelReleasesReservation(t *testing.T) {
	f := newFixture(t)
	product := f.product(t, 5)
	invoice := f.draft(t, product, 2)

	cancelled, err := f.svc.UpdateStatus(f.ctx, invoice.ID.String(), "cancelled")
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancelledAt)

	stored := f.reload(t, product.ID)
	assert.Equal(t, int64(5), stored.Quantity)
	assert.Zero(t, stored.ReservedQuantity)
}

func TestMarkOverdue_SweepsOpenInvoicesInBatches(t *testing.T) {
	f := newFixture(t)
	product := f.product(t, 50)

	var open []invoicedomain.Invoice
	for range 3 {
		open = append(open, f.draft(t, product, 1))
	}
	_, err := f.svc.UpdateStatus(f.ctx, open[0].ID.String(), "sent")
	require.NoError(t, err)

	paid := f.draft(t, product, 1)
	_, err = f.svc.UpdateStatus(f.ctx, paid.ID.String(), "sent")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(f.ctx, paid.ID.String(), "paid")
	require.NoError(t, err)

	cancelled := f.draft(t, product, 1)
	_, err = f.svc.UpdateStatus(f.ctx, cancelled.ID.String(), "cancelled")
	require.NoError(t, err)

	moved, err := f.svc.MarkOverdue(context.Background(), f.clk.Now())
	require.NoError(t, err)
	assert.Zero(t, moved)

	later := f.clk.Now().AddDate(0, 0, 20)
	moved, err = f.svc.MarkOverdue(context.Background(), later)
	require.NoError(t, err)
	assert.Equal(t, 3, moved)

	for _, inv := range open {
		got, err := f.svc.GetInvoice(f.ctx, inv.ID.String())
		require.NoError(t, err)
		assert.Equal(t, invoicedomain.StatusOverdue, got.Status)
	}
	got, err := f.svc.GetInvoice(f.ctx, paid.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPaid, got.Status)
	got, err = f.svc.GetInvoice(f.ctx, cancelled.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusCancelled, got.Status)

	moved, err = f.svc.MarkOverdue(context.Background(), later)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestGetOverdueSummary(t *testing.T) {
	f := newFixture(t)
	product := f.product(t, 50)
	f.draft(t, product, 1)
	f.draft(t, product, 2)

	_, err := f.svc.MarkOverdue(context.Background(), f.clk.Now().AddDate(0, 0, 15))
	require.NoError(t, err)
	f.clk.Advance(19 * 24 * time.Hour)

	summary, err := f.svc.GetOverdueSummary(f.ctx, f.owner.String())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, "120.00", summary.TotalOutstanding.StringFixed(2))
	for _, row := range summary.Invoices {
		assert.Equal(t, 5, row.DaysOverdue)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, invoicedomain.CanTransition(invoicedomain.StatusSent, invoicedomain.StatusOverdue))
	assert.True(t, invoicedomain.CanTransition(invoicedomain.StatusOverdue, invoicedomain.StatusPaid))
	assert.True(t, invoicedomain.CanTransition(invoicedomain.StatusPaid, invoicedomain.StatusPaid))
	assert.False(t, invoicedomain.CanTransition(invoicedomain.StatusDraft, invoicedomain.StatusPaid))
	assert.False(t, invoicedomain.CanTransition(invoicedomain.StatusPaid, invoicedomain.StatusCancelled))
	assert.False(t, invoicedomain.CanTransition(invoicedomain.StatusCancelled, invoicedomain.StatusDraft))
}

func ptr[T any](v T) *T { return &v }
