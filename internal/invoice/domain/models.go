// Package domain contains persistence models for invoices and their
// append-only version history.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "draft"
	InvoiceStatusSent     InvoiceStatus = "sent"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	InvoiceStatusCanceled InvoiceStatus = "canceled"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCanceled:
		return true
	default:
		return false
	}
}

// Invoice is a billing document issued by a company. Once sent it is locked
// and the numbered, snapshotted state becomes immutable.
type Invoice struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID       snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_invoices_company_number" json:"company_id"`
	CustomerID      *snowflake.ID     `gorm:"index" json:"customer_id,omitempty"`
	CustomerName    string            `json:"customer_name"`
	CustomerAddress string            `gorm:"type:text" json:"customer_address"`
	CustomerZip     string            `json:"customer_zip"`
	CustomerCity    string            `json:"customer_city"`
	CustomerCountry string            `json:"customer_country"`
	Number          string            `gorm:"not null;uniqueIndex:ux_invoices_company_number" json:"number"`
	Status          InvoiceStatus     `gorm:"type:text;not null;default:'draft'" json:"status"`
	IsLocked        bool              `gorm:"not null;default:false" json:"is_locked"`
	IssueDate       *time.Time        `json:"issue_date,omitempty"`
	DueDate         *time.Time        `json:"due_date,omitempty"`
	TotalNet        decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"total_net"`
	TotalTax        decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"total_tax"`
	TotalGross      decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"total_gross"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `gorm:"index" json:"-"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceLine belongs to exactly one invoice. Net, tax and gross are
// derived on every create/update; submitted values are overwritten.
type InvoiceLine struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"unit_price"`
	TaxRate     decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"tax_rate"`
	TotalNet    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_net"`
	TotalTax    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_tax"`
	TotalGross  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_gross"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName sets the database table name.
func (InvoiceLine) TableName() string { return "invoice_lines" }

// InvoiceVersion is an append-only, denormalized copy of an invoice and its
// lines captured when the invoice left draft. Rows are never updated or
// deleted.
type InvoiceVersion struct {
	ID        snowflake.ID   `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID   `gorm:"not null;index" json:"invoice_id"`
	Snapshot  datatypes.JSON `gorm:"type:jsonb;not null" json:"snapshot"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceVersion) TableName() string { return "invoice_versions" }
