// Package seed provisions the default issuer company for local and
// self-hosted setups.
package seed

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	companydomain "github.com/smallbiznis/facture/internal/company/domain"
	"gorm.io/gorm"
)

const defaultCompanyName = "Main Company"

// EnsureDefaultCompany creates the default issuer when no company exists.
// Idempotent across restarts.
func EnsureDefaultCompany(db *gorm.DB) error {
	node, err := snowflake.NewNode(0)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&companydomain.Company{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		company := companydomain.Company{
			ID:        node.Generate(),
			Name:      defaultCompanyName,
			Slug:      slug.Make(defaultCompanyName),
			Country:   "FR",
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Create(&company).Error
	})
}
