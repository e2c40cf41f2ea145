package migration

import (
	companydomain "github.com/smallbiznis/facture/internal/company/domain"
	"github.com/smallbiznis/facture/internal/config"
	invoicedomain "github.com/smallbiznis/facture/internal/invoice/domain"
	quotedomain "github.com/smallbiznis/facture/internal/quote/domain"
	"github.com/smallbiznis/facture/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The versioned SQL migrations target postgres. Other dialects
		// (sqlite in dev, mysql) derive the schema from the models.
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&companydomain.Company{},
				&quotedomain.Quote{},
				&quotedomain.QuoteLine{},
				&invoicedomain.Invoice{},
				&invoicedomain.InvoiceLine{},
				&invoicedomain.InvoiceVersion{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedEnabled {
			return seed.EnsureDefaultCompany(conn)
		}
		return nil
	}),
)
