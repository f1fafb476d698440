package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	auditrepo "github.com/smallbiznis/salesengine/internal/audit/repository"
	auditservice "github.com/smallbiznis/salesengine/internal/audit/service"
	"github.com/smallbiznis/salesengine/internal/clock"
	"github.com/smallbiznis/salesengine/internal/consistency/domain"
	"github.com/smallbiznis/salesengine/internal/consistency/repository"
	customerdomain "github.com/smallbiznis/salesengine/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/salesengine/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	productdomain "github.com/smallbiznis/salesengine/internal/product/domain"
	revenuerepo "github.com/smallbiznis/salesengine/internal/revenue/repository"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	"github.com/smallbiznis/salesengine/internal/sale/saletest"
	"github.com/smallbiznis/salesengine/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	svc   domain.Service
	owner snowflake.ID
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t,
		&saledomain.Sale{}, &saledomain.SalePayment{}, &productdomain.Product{},
		&customerdomain.Customer{}, &ledgerdomain.Transaction{}, &invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{}, &auditdomain.AuditLog{},
	)
	node := dbtest.Node(t)
	now := time.Date(2024, time.August, 5, 8, 0, 0, 0, time.UTC)
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(now),
		Repo:     repository.Provide(),
		Revenue:  revenuerepo.Provide(),
		AuditSvc: auditservice.NewService(auditservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: auditrepo.Provide()}),
	})
	return &fixture{db: db, node: node, svc: svc, owner: snowflake.ID(9001), now: now}
}

// seedBroken writes one healthy sale plus one of every repairable and
// report-only problem.
func (f *fixture) seedBroken(t *testing.T) (healthy, danglingCustomer, debtorless saledomain.Sale) {
	t.Helper()
	product := productdomain.Product{ID: f.node.Generate(), OwnerID: f.owner, Name: "Lamp", UnitPrice: decimal.NewFromInt(10), CostPrice: decimal.NewFromInt(5), Quantity: 3}
	require.NoError(t, f.db.Create(&product).Error)
	customer := customerdomain.Customer{ID: f.node.Generate(), OwnerID: f.owner, Name: "Known"}
	require.NoError(t, f.db.Create(&customer).Error)

	healthy = saletest.Insert(t, f.db, f.node, saletest.Seed{OwnerID: f.owner, CustomerID: &customer.ID, ProductID: product.ID, Status: saledomain.PaymentStatusCredit, Total: "100", Paid: "40"})

	ghost := f.node.Generate()
	danglingCustomer = saletest.Insert(t, f.db, f.node, saletest.Seed{OwnerID: f.owner, CustomerID: &ghost, ProductID: product.ID, Status: saledomain.PaymentStatusPaid, Total: "60", Paid: "60"})
	debtorless = saletest.Insert(t, f.db, f.node, saletest.Seed{OwnerID: f.owner, CustomerID: &ghost, ProductID: product.ID, Status: saledomain.PaymentStatusCredit, Total: "45", Paid: "10"})

	require.NoError(t, f.db.Create(&saledomain.SalePayment{
		ID: f.node.Generate(), OwnerID: f.owner, SaleID: f.node.Generate(), Amount: decimal.NewFromInt(5),
		PaymentMethodID: f.node.Generate(), PaymentDate: f.now, CreatedAt: f.now,
	}).Error)

	missingSale := f.node.Generate()
	require.NoError(t, f.db.Create(&ledgerdomain.Transaction{
		ID: f.node.Generate(), OwnerID: f.owner, SaleID: &missingSale, SourceType: ledgerdomain.SourceTypeSale,
		SourceID: missingSale, Kind: ledgerdomain.KindMoneyIn, Amount: decimal.NewFromInt(5), Currency: "NGN", OccurredAt: f.now, CreatedAt: f.now,
	}).Error)

	saletest.Insert(t, f.db, f.node, saletest.Seed{OwnerID: f.owner, ProductID: product.ID, Status: saledomain.PaymentStatusCredit, Total: "20", Paid: "20"})
	saletest.Insert(t, f.db, f.node, saletest.Seed{OwnerID: f.owner, Status: saledomain.PaymentStatusPaid, Total: "30", Paid: "30"})

	negative := productdomain.Product{ID: f.node.Generate(), OwnerID: f.owner, Name: "Broken", UnitPrice: decimal.NewFromInt(1), CostPrice: decimal.NewFromInt(1), Quantity: -2}
	require.NoError(t, f.db.Create(&negative).Error)
	return healthy, danglingCustomer, debtorless
}

func TestAudit_FindsEveryIssue(t *testing.T) {
	f := newFixture(t)
	f.seedBroken(t)

	report, err := f.svc.Audit(context.Background(), f.owner.String())
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, f.now, report.CheckedAt)

	assert.Equal(t, 1, report.Counts[domain.IssueMissingCustomer])
	assert.Equal(t, 1, report.Counts[domain.IssueCreditWithoutDebtor])
	assert.Equal(t, 1, report.Counts[domain.IssueMissingProduct])
	assert.Equal(t, 1, report.Counts[domain.IssueOrphanPayment])
	assert.Equal(t, 1, report.Counts[domain.IssueOrphanLedgerEntry])
	assert.Equal(t, 1, report.Counts[domain.IssueCreditWithZeroDue])
	assert.Equal(t, 1, report.Counts[domain.IssueNegativeStock])
	assert.Zero(t, report.Counts[domain.IssueBalanceMismatch])
}

func TestAudit_OtherOwnerIsClean(t *testing.T) {
	f := newFixture(t)
	f.seedBroken(t)

	report, err := f.svc.Audit(context.Background(), (f.owner + 1).String())
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestRepair_FixesReferencesAndReportsTheRest(t *testing.T) {
	f := newFixture(t)
	healthy, dangling, debtorless := f.seedBroken(t)

	result, err := f.svc.Repair(context.Background(), f.owner.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.CustomerRefsCleared)
	assert.Equal(t, int64(1), result.PaymentsDeleted)
	assert.Equal(t, int64(1), result.LedgerEntriesDeleted)
	assert.Equal(t, 4, result.Unrepaired)

	var reloaded saledomain.Sale
	require.NoError(t, f.db.First(&reloaded, dangling.ID).Error)
	assert.Nil(t, reloaded.CustomerID)
	reloaded = saledomain.Sale{}
	require.NoError(t, f.db.First(&reloaded, healthy.ID).Error)
	assert.NotNil(t, reloaded.CustomerID)
	var credit saledomain.Sale
	require.NoError(t, f.db.First(&credit, debtorless.ID).Error)
	require.NotNil(t, credit.CustomerID)
	assert.Equal(t, saledomain.PaymentStatusCredit, credit.PaymentStatus)

	report, err := f.svc.Audit(context.Background(), f.owner.String())
	require.NoError(t, err)
	assert.Zero(t, report.Counts[domain.IssueMissingCustomer])
	assert.Equal(t, 1, report.Counts[domain.IssueCreditWithoutDebtor])
	assert.Zero(t, report.Counts[domain.IssueOrphanPayment])
	assert.Zero(t, report.Counts[domain.IssueOrphanLedgerEntry])
	assert.Equal(t, 1, report.Counts[domain.IssueCreditWithZeroDue])

	var audits []auditdomain.AuditLog
	require.NoError(t, f.db.Where("action = ?", "consistency.repaired").Find(&audits).Error)
	assert.Len(t, audits, 1)
}

func TestAudit_RejectsBadOwner(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Audit(context.Background(), "owner")
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestClearCustomer_LeavesCreditSales(t *testing.T) {
	f := newFixture(t)
	_, dangling, debtorless := f.seedBroken(t)

	cleared, err := repository.Provide().ClearCustomer(context.Background(), f.db, f.owner, []snowflake.ID{dangling.ID, debtorless.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	var credit saledomain.Sale
	require.NoError(t, f.db.First(&credit, debtorless.ID).Error)
	assert.NotNil(t, credit.CustomerID)
}
