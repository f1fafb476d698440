// Package document renders invoices for download.
package document

import (
	"context"
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	invoicedomain "github.com/smallbiznis/salesengine/internal/invoice/domain"
)

const dateLayout = "02 Jan 2006"

// Renderer turns an invoice into a downloadable document.
type Renderer interface {
	Render(ctx context.Context, data Data) ([]byte, error)
}

// Data is the printable view of an invoice.
type Data struct {
	InvoiceNumber string
	Status        string
	IssueDate     string
	DueDate       string
	Currency      string

	BillToName  string
	BillToEmail string
	BillToPhone string

	Items []Line

	Total string
	Notes string
}

type Line struct {
	Description string
	Quantity    int64
	UnitPrice   string
	Amount      string
}

// FromInvoice builds printable data. Customer fields are empty for walk-in
// invoices.
func FromInvoice(inv invoicedomain.Invoice, customerName, customerEmail, customerPhone string) Data {
	data := Data{
		InvoiceNumber: inv.Number(),
		Status:        string(inv.Status),
		IssueDate:     inv.CreatedAt.UTC().Format(dateLayout),
		DueDate:       inv.DueDate.UTC().Format(dateLayout),
		Currency:      inv.Currency,
		BillToName:    customerName,
		BillToEmail:   customerEmail,
		BillToPhone:   customerPhone,
		Total:         inv.TotalAmount.StringFixed(2),
		Notes:         inv.Notes,
	}
	if data.BillToName == "" {
		data.BillToName = "Walk-in customer"
	}
	for _, item := range inv.Items {
		data.Items = append(data.Items, Line{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Amount:      item.Amount.StringFixed(2),
		})
	}
	return data
}

type PDFRenderer struct{}

func NewPDFRenderer() Renderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(ctx context.Context, data Data) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "Invoice "+data.InvoiceNumber, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.Status, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(18,
		col.New(6).Add(
			text.New("Date of issue: "+data.IssueDate, props.Text{Top: 0}),
			text.New("Date due: "+data.DueDate, props.Text{Top: 5}),
			text.New("Currency: "+data.Currency, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(data.BillToName, props.Text{Top: 5}),
			text.New(data.BillToEmail, props.Text{Top: 9}),
			text.New(data.BillToPhone, props.Text{Top: 13}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range data.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, strconv.FormatInt(item.Quantity, 10), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, fmt.Sprintf("%s %s", data.Currency, data.Total), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if data.Notes != "" {
		m.AddRow(15, text.NewCol(12, data.Notes, props.Text{Size: 9, Top: 4}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
