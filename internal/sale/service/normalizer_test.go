package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salesengine/internal/apperror"
	"github.com/smallbiznis/salesengine/internal/sale/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) domain.SaleRequest {
	t.Helper()
	req, err := domain.DecodeSaleRequest([]byte(body))
	require.NoError(t, err)
	return req
}

func fieldOf(err error) string {
	return apperror.As(err).Field
}

func TestDecodeSaleRequest_MalformedJSON(t *testing.T) {
	req, err := domain.DecodeSaleRequest([]byte(`{"product_id": `))
	require.Error(t, err)
	assert.Equal(t, apperror.KindJSONParse, apperror.KindOf(err))
	assert.Equal(t, 15, req.PayloadSize)
}

func TestNormalize_SingleItemBecomesOneLine(t *testing.T) {
	req := decode(t, `{"product_id":"101","quantity":2,"unit_price":"75.00","total_amount":150,"payment_method_id":"cash"}`)

	out, err := Normalize(req, "ngn")
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(2), out.Items[0].Quantity)
	assert.True(t, out.Total().Equal(decimal.NewFromInt(150)))
	assert.Equal(t, domain.PaymentStatusPaid, out.PaymentStatus)
	assert.True(t, out.AmountPaid.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "NGN", out.Currency)
}

func TestNormalize_MultiItem(t *testing.T) {
	req := decode(t, `{
		"sale_items":[{"product_id":"1","quantity":1,"unit_price":10},{"product_id":"2","quantity":3,"unit_price":"2.50"}],
		"customer_id":"55","payment_status":"credit","amount_paid":5,"payment_method":"cash",
		"discount_amount":1,"tax_amount":"0.75","currency":"usd","date":"2024-04-01","notes":" thanks "
	}`)

	out, err := Normalize(req, "NGN")
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, domain.PaymentStatusCredit, out.PaymentStatus)
	assert.True(t, out.Total().Equal(decimal.RequireFromString("17.5")))
	assert.True(t, out.AmountPaid.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "cash", out.PaymentMethodID)
	assert.Equal(t, "USD", out.Currency)
	assert.Equal(t, "thanks", out.Notes)
	require.NotNil(t, out.Date)
	assert.Equal(t, 2024, out.Date.Year())
}

func TestNormalize_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"no shape", `{"customer_id":"1"}`, "sale_items"},
		{"empty items", `{"sale_items":[]}`, "sale_items"},
		{"missing product", `{"quantity":1,"unit_price":1}`, "product_id"},
		{"missing quantity", `{"sale_items":[{"product_id":"1","unit_price":1}]}`, "sale_items[0].quantity"},
		{"zero quantity", `{"sale_items":[{"product_id":"1","quantity":1,"unit_price":1},{"product_id":"2","quantity":0,"unit_price":1}]}`, "sale_items[1].quantity"},
		{"missing price", `{"product_id":"1","quantity":1}`, "unit_price"},
		{"negative price", `{"product_id":"1","quantity":1,"unit_price":-1}`, "unit_price"},
		{"negative discount", `{"product_id":"1","quantity":1,"unit_price":1,"discount_amount":-2}`, "discount_amount"},
		{"negative tax", `{"product_id":"1","quantity":1,"unit_price":1,"tax_amount":-2}`, "tax_amount"},
		{"total mismatch", `{"product_id":"1","quantity":2,"unit_price":75,"total_amount":160}`, "total_amount"},
		{"bad status", `{"product_id":"1","quantity":1,"unit_price":1,"payment_status":"refunded"}`, "payment_status"},
		{"paid without method", `{"product_id":"1","quantity":1,"unit_price":1,"payment_status":"Paid"}`, "payment_method_id"},
		{"credit without customer", `{"product_id":"1","quantity":1,"unit_price":1,"payment_status":"Credit"}`, "customer_id"},
		{"credit overpaid", `{"product_id":"1","quantity":1,"unit_price":10,"payment_status":"Credit","customer_id":"9","amount_paid":11,"payment_method_id":"cash"}`, "amount_paid"},
		{"bad date", `{"product_id":"1","quantity":1,"unit_price":1,"date":"01/02/2024"}`, "date"},
		{"bad currency", `{"product_id":"1","quantity":1,"unit_price":1,"currency":"naira"}`, "currency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(decode(t, tc.body), "NGN")
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
			assert.Equal(t, tc.field, fieldOf(err))
		})
	}
}

func TestNormalize_PendingIgnoresAmountPaid(t *testing.T) {
	out, err := Normalize(decode(t, `{"product_id":"1","quantity":1,"unit_price":10,"amount_paid":4}`), "NGN")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, out.PaymentStatus)
	assert.True(t, out.AmountPaid.IsZero())
}
