package domain

import "context"

// PDFRenderer renders an invoice and its lines into a PDF document.
type PDFRenderer interface {
	RenderInvoice(ctx context.Context, inv Invoice, lines []InvoiceLine) ([]byte, error)
}
