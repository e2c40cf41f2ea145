// Package domain contains persistence models for companies.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Company is a registered party. It can issue documents and be referenced
// as a customer on someone else's documents.
type Company struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"not null" json:"name"`
	Slug      string            `gorm:"not null;uniqueIndex" json:"slug"`
	Address   string            `gorm:"type:text" json:"address"`
	ZipCode   string            `json:"zip_code"`
	City      string            `json:"city"`
	Country   string            `json:"country"`
	Email     string            `json:"email,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }
