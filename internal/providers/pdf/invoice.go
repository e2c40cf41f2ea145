// Package pdf renders invoices with maroto.
package pdf

import (
	"context"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/facture/internal/invoice/domain"
)

type Renderer struct{}

func New() domain.PDFRenderer {
	return &Renderer{}
}

func (r *Renderer) RenderInvoice(ctx context.Context, inv domain.Invoice, lines []domain.InvoiceLine) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(10,
		text.NewCol(12, "Invoice "+inv.Number, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+inv.Number, props.Text{Top: 0}),
			text.New("Date of issue: "+formatDate(inv.IssueDate), props.Text{Top: 4}),
			text.New("Date due: "+formatDate(inv.DueDate), props.Text{Top: 8}),
			text.New("Status: "+string(inv.Status), props.Text{Top: 12}),
		),
		col.New(6),
	)

	m.AddRow(35,
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(inv.CustomerName, props.Text{Top: 5}),
			text.New(inv.CustomerAddress, props.Text{Top: 9}),
			text.New(inv.CustomerZip+" "+inv.CustomerCity, props.Text{Top: 13}),
			text.New(inv.CustomerCountry, props.Text{Top: 17}),
		),
		col.New(6),
	)

	m.AddRow(10,
		text.NewCol(5, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "Tax %", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, line := range lines {
		m.AddRow(12,
			text.NewCol(5, line.Title, props.Text{Size: 9}),
			text.NewCol(2, line.Quantity.String(), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, line.UnitPrice.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(1, line.TaxRate.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, line.TotalNet.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total net", props.Text{Size: 9}),
		text.NewCol(2, inv.TotalNet.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total tax", props.Text{Size: 9}),
		text.NewCol(2, inv.TotalTax.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total gross", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, inv.TotalGross.StringFixed(2), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
