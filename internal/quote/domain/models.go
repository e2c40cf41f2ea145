// Package domain contains persistence models for quotes.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuoteStatus represents quote lifecycle states.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// Valid reports whether s is a known status.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether s locks the quote. Quotes have no lock flag;
// a terminal status is the lock.
func (s QuoteStatus) Terminal() bool {
	switch s {
	case QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired:
		return true
	default:
		return false
	}
}

// Quote is a commercial offer issued by a company to a customer.
// Totals are always derived from the owned lines.
type Quote struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID       snowflake.ID      `gorm:"not null;index" json:"company_id"`
	CustomerID      *snowflake.ID     `gorm:"index;uniqueIndex:ux_quotes_customer_number" json:"customer_id,omitempty"`
	CustomerName    string            `json:"customer_name"`
	CustomerAddress string            `gorm:"type:text" json:"customer_address"`
	CustomerZip     string            `json:"customer_zip"`
	CustomerCity    string            `json:"customer_city"`
	CustomerCountry string            `json:"customer_country"`
	Number          string            `gorm:"not null;uniqueIndex:ux_quotes_customer_number" json:"number"`
	Status          QuoteStatus       `gorm:"type:text;not null;default:'draft'" json:"status"`
	IssueDate       *time.Time        `json:"issue_date,omitempty"`
	ValidUntil      *time.Time        `json:"valid_until,omitempty"`
	TotalNet        decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"total_net"`
	TotalTax        decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"total_tax"`
	TotalGross      decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"total_gross"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Quote) TableName() string { return "quotes" }

// QuoteLine belongs to exactly one quote and is removed with it.
// Net, tax and gross are derived on every create/update; submitted values
// are overwritten.
type QuoteLine struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	QuoteID     snowflake.ID    `gorm:"not null;index" json:"quote_id"`
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
func (QuoteLine) TableName() string { return "quote_lines" }
