package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/invoice/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingRenderer struct {
	data document.Data
}

func (r *capturingRenderer) Render(_ context.Context, data document.Data) ([]byte, error) {
	r.data = data
	return []byte("%PDF"), nil
}

func TestRenderPDF_WalkInInvoice(t *testing.T) {
	f := newFixture(t)
	renderer := &capturingRenderer{}
	f.svc.renderer = renderer
	invoice := f.draft(t, f.product(t, 5), 2)

	out, err := f.svc.RenderPDF(f.ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), out)

	assert.Equal(t, "INV-000001", renderer.data.InvoiceNumber)
	assert.Equal(t, "Walk-in customer", renderer.data.BillToName)
	assert.Equal(t, "80.00", renderer.data.Total)
	require.Len(t, renderer.data.Items, 1)
	assert.Equal(t, int64(2), renderer.data.Items[0].Quantity)
	assert.Equal(t, "40.00", renderer.data.Items[0].UnitPrice)
}

func TestRenderPDF_UnknownInvoice(t *testing.T) {
	f := newFixture(t)
	f.svc.renderer = &capturingRenderer{}

	_, err := f.svc.RenderPDF(f.ctx, f.node.Generate().String())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}
