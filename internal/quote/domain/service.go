package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/facture/pkg/db/pagination"
)

type CreateQuoteRequest struct {
	CompanyID       string
	CustomerID      *string
	CustomerName    *string
	CustomerAddress *string
	CustomerZip     *string
	CustomerCity    *string
	CustomerCountry *string
	Number          string
	IssueDate       *time.Time
	ValidUntil      *time.Time
	Metadata        map[string]any
}

type UpdateQuoteRequest struct {
	CustomerID      *string
	CustomerName    *string
	CustomerAddress *string
	CustomerZip     *string
	CustomerCity    *string
	CustomerCountry *string
	Number          *string
	Status          *QuoteStatus
	IssueDate       *time.Time
	ValidUntil      *time.Time
	Metadata        map[string]any
}

type CreateQuoteLineRequest struct {
	Title       string
	Description *string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     *decimal.Decimal
}

type UpdateQuoteLineRequest struct {
	Title       *string
	Description *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
	TaxRate     *decimal.Decimal
}

type ListQuoteRequest struct {
	pagination.Pagination
	CompanyID string
	Status    *QuoteStatus
}

type ListQuoteResponse struct {
	pagination.PageInfo
	Quotes []Quote `json:"quotes"`
}

type Service interface {
	Create(context.Context, CreateQuoteRequest) (Quote, error)
	Update(ctx context.Context, id string, req UpdateQuoteRequest) (Quote, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Quote, error)
	List(context.Context, ListQuoteRequest) (ListQuoteResponse, error)

	ListLines(ctx context.Context, quoteID string) ([]QuoteLine, error)
	CreateLine(ctx context.Context, quoteID string, req CreateQuoteLineRequest) (QuoteLine, error)
	UpdateLine(ctx context.Context, quoteID, lineID string, req UpdateQuoteLineRequest) (QuoteLine, error)
	DeleteLine(ctx context.Context, quoteID, lineID string) error

	// ExpireQuotes marks sent quotes past their valid_until date as expired.
	// Returns the number of quotes transitioned.
	ExpireQuotes(ctx context.Context) (int64, error)
}

var (
	ErrQuoteLocked          = errors.New("quote_locked")
	ErrQuoteCannotBeDeleted = errors.New("quote_cannot_be_deleted")
	ErrNotFound             = errors.New("not_found")
	ErrLineNotFound         = errors.New("line_not_found")
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidCompany       = errors.New("invalid_company")
	ErrInvalidNumber        = errors.New("number_required")
	ErrNumberTaken          = errors.New("quote_number_taken")
	ErrCustomerRequired     = errors.New("customer_required")
	ErrCustomerNotFound     = errors.New("customer_not_found")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidTitle         = errors.New("title_required")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidUnitPrice     = errors.New("invalid_unit_price")
	ErrInvalidTaxRate       = errors.New("invalid_tax_rate")
)
