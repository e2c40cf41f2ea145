package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/facture/pkg/db/pagination"
)

type CreateInvoiceRequest struct {
	CompanyID       string
	CustomerID      *string
	CustomerName    *string
	CustomerAddress *string
	CustomerZip     *string
	CustomerCity    *string
	CustomerCountry *string
	// Number is generated per issuer and year when empty.
	Number    string
	IssueDate *time.Time
	DueDate   *time.Time
	Metadata  map[string]any
}

type UpdateInvoiceRequest struct {
	CustomerID      *string
	CustomerName    *string
	CustomerAddress *string
	CustomerZip     *string
	CustomerCity    *string
	CustomerCountry *string
	Status          *InvoiceStatus
	IssueDate       *time.Time
	DueDate         *time.Time
	Metadata        map[string]any
}

type CreateInvoiceLineRequest struct {
	Title       string
	Description *string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     *decimal.Decimal
}

type UpdateInvoiceLineRequest struct {
	Title       *string
	Description *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
	TaxRate     *decimal.Decimal
}

type ListInvoiceRequest struct {
	pagination.Pagination
	CompanyID string
	Status    *InvoiceStatus
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	Update(ctx context.Context, id string, req UpdateInvoiceRequest) (Invoice, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)

	ListLines(ctx context.Context, invoiceID string) ([]InvoiceLine, error)
	CreateLine(ctx context.Context, invoiceID string, req CreateInvoiceLineRequest) (InvoiceLine, error)
	UpdateLine(ctx context.Context, invoiceID, lineID string, req UpdateInvoiceLineRequest) (InvoiceLine, error)
	DeleteLine(ctx context.Context, invoiceID, lineID string) error

	// ListVersions returns the append-only snapshot history, oldest first.
	ListVersions(ctx context.Context, invoiceID string) ([]InvoiceVersion, error)

	// RenderPDF renders the invoice document as a PDF.
	RenderPDF(ctx context.Context, invoiceID string) ([]byte, error)
}

var (
	ErrInvoiceLocked         = errors.New("invoice_locked")
	ErrInvoiceDeleteNotDraft = errors.New("invoice_can_only_be_deleted_in_draft")
	ErrNotFound              = errors.New("not_found")
	ErrLineNotFound          = errors.New("line_not_found")
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidCompany        = errors.New("invalid_company")
	ErrNumberTaken           = errors.New("invoice_number_taken")
	ErrCustomerRequired      = errors.New("customer_required")
	ErrCustomerNotFound      = errors.New("customer_not_found")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrInvalidTitle          = errors.New("title_required")
	ErrInvalidQuantity       = errors.New("invalid_quantity")
	ErrInvalidUnitPrice      = errors.New("invalid_unit_price")
	ErrInvalidTaxRate        = errors.New("invalid_tax_rate")
)
