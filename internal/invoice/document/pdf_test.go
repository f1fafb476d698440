package document

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/salesengine/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
)

func TestFromInvoice(t *testing.T) {
	inv := invoicedomain.Invoice{
		InvoiceNumber: 42,
		Status:        invoicedomain.StatusSent,
		TotalAmount:   decimal.RequireFromString("150.5"),
		Currency:      "NGN",
		CreatedAt:     time.Date(2024, time.March, 3, 9, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2024, time.March, 17, 9, 0, 0, 0, time.UTC),
		Items: []invoicedomain.InvoiceItem{
			{Description: "Crate", Quantity: 3, UnitPrice: decimal.RequireFromString("50.1666"), Amount: decimal.RequireFromString("150.5")},
		},
	}

	data := FromInvoice(inv, "Ada", "ada@example.com", "")
	assert.Equal(t, "INV-000042", data.InvoiceNumber)
	assert.Equal(t, "sent", data.Status)
	assert.Equal(t, "03 Mar 2024", data.IssueDate)
	assert.Equal(t, "17 Mar 2024", data.DueDate)
	assert.Equal(t, "150.50", data.Total)
	assert.Equal(t, "Ada", data.BillToName)
	assert.Equal(t, "50.17", data.Items[0].UnitPrice)

	assert.Equal(t, "Walk-in customer", FromInvoice(inv, "", "", "").BillToName)
}
