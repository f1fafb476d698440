package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	"github.com/smallbiznis/salesengine/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordTx_IdempotentPerSource(t *testing.T) {
	db := dbtest.Open(t, &ledgerdomain.Transaction{})
	node := dbtest.Node(t)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})

	ownerID := node.Generate()
	invoiceID := node.Generate()
	entry := ledgerdomain.Entry{
		OwnerID:    ownerID,
		InvoiceID:  &invoiceID,
		SourceType: ledgerdomain.SourceTypeInvoice,
		SourceID:   invoiceID,
		Amount:     decimal.NewFromInt(250),
		Currency:   "ngn",
		OccurredAt: time.Now(),
	}

	inserted, err := svc.RecordTx(context.Background(), db, entry)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = svc.RecordTx(context.Background(), db, entry)
	require.NoError(t, err)
	assert.False(t, inserted)

	var count int64
	require.NoError(t, db.Model(&ledgerdomain.Transaction{}).Where("source_id = ?", invoiceID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordTx_RejectsInvalidEntries(t *testing.T) {
	db := dbtest.Open(t, &ledgerdomain.Transaction{})
	node := dbtest.Node(t)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})

	base := ledgerdomain.Entry{
		OwnerID:    node.Generate(),
		SourceType: ledgerdomain.SourceTypeSale,
		SourceID:   node.Generate(),
		Amount:     decimal.NewFromInt(10),
		Currency:   "NGN",
	}

	zero := base
	zero.Amount = decimal.Zero
	_, err := svc.RecordTx(context.Background(), db, zero)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)

	unknown := base
	unknown.SourceType = "refund"
	_, err = svc.RecordTx(context.Background(), db, unknown)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidSourceType)

	noCurrency := base
	noCurrency.Currency = " "
	_, err = svc.RecordTx(context.Background(), db, noCurrency)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidCurrency)
}

func TestDeleteForSaleTx(t *testing.T) {
	db := dbtest.Open(t, &ledgerdomain.Transaction{})
	node := dbtest.Node(t)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})

	ownerID := node.Generate()
	saleID := node.Generate()
	for _, source := range []ledgerdomain.SourceType{ledgerdomain.SourceTypeSale, ledgerdomain.SourceTypeSalePayment} {
		_, err := svc.RecordTx(context.Background(), db, ledgerdomain.Entry{
			OwnerID:    ownerID,
			SaleID:     &saleID,
			SourceType: source,
			SourceID:   node.Generate(),
			Amount:     decimal.NewFromInt(5),
			Currency:   "NGN",
		})
		require.NoError(t, err)
	}

	items, err := svc.ListBySale(context.Background(), saleID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	deleted, err := svc.DeleteForSaleTx(context.Background(), db, saleID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}
