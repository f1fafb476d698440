package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/notification/domain"
	"github.com/smallbiznis/salesengine/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type user struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	Email string
}

func (user) TableName() string { return "users" }

type recordingProvider struct {
	mu    sync.Mutex
	sent  []string
	to    []string
	fail  bool
	datas []map[string]any
}

func (p *recordingProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (p *recordingProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("smtp down")
	}
	p.sent = append(p.sent, templateName)
	p.to = append(p.to, to...)
	p.datas = append(p.datas, data)
	return nil
}

func newDispatcher(t *testing.T, provider *recordingProvider) (*Dispatcher, *sync.WaitGroup) {
	t.Helper()
	db := dbtest.Open(t, &user{})
	require.NoError(t, db.Create(&user{ID: 10, Email: "owner@example.com"}).Error)

	var wg sync.WaitGroup
	d := New(Params{DB: db, Log: zap.NewNop(), Email: provider}).(*Dispatcher)
	d.wait = wg.Done
	return d, &wg
}

func TestLowStock_SendsToOwner(t *testing.T) {
	provider := &recordingProvider{}
	d, wg := newDispatcher(t, provider)

	wg.Add(1)
	d.LowStock(context.Background(), domain.LowStockAlert{OwnerID: 10, ProductID: 5, ProductName: "Rice", Quantity: 2, Threshold: 5})
	wg.Wait()

	assert.Equal(t, []string{"low_stock"}, provider.sent)
	assert.Equal(t, []string{"owner@example.com"}, provider.to)
	assert.Equal(t, "Rice", provider.datas[0]["product_name"])
}

func TestInvoicePaid_CancelledRequestStillDelivers(t *testing.T) {
	provider := &recordingProvider{}
	d, wg := newDispatcher(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wg.Add(1)
	d.InvoicePaid(ctx, domain.InvoicePaidNotice{
		OwnerID:     10,
		InvoiceID:   77,
		Number:      "INV-77",
		TotalAmount: decimal.RequireFromString("1200.5"),
		Currency:    "NGN",
		PaidAt:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	wg.Wait()

	require.Len(t, provider.datas, 1)
	assert.Equal(t, "1200.50", provider.datas[0]["amount"])
}

func TestDispatch_FailuresAreSwallowed(t *testing.T) {
	provider := &recordingProvider{fail: true}
	d, wg := newDispatcher(t, provider)

	wg.Add(2)
	d.LowStock(context.Background(), domain.LowStockAlert{OwnerID: 10, ProductName: "Beans"})
	d.LowStock(context.Background(), domain.LowStockAlert{OwnerID: 99, ProductName: "Unknown owner"})
	wg.Wait()

	assert.Empty(t, provider.sent)
}
