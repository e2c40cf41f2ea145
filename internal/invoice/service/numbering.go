package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/facture/internal/invoice/domain"
	"gorm.io/gorm"
)

// nextNumber generates the next invoice number for the issuer in the given
// year, format F-{year}-{sequence}. The scan covers soft-deleted invoices
// so a deleted draft never frees its number. Past 9999 the sequence widens
// instead of wrapping.
func nextNumber(tx *gorm.DB, companyID snowflake.ID, year int) (string, error) {
	prefix := fmt.Sprintf("F-%04d-", year)

	var numbers []string
	err := tx.Unscoped().
		Model(&domain.Invoice{}).
		Where("company_id = ? AND number LIKE ?", companyID, prefix+"%").
		Pluck("number", &numbers).Error
	if err != nil {
		return "", err
	}

	max := 0
	for _, number := range numbers {
		suffix := strings.TrimPrefix(number, prefix)
		seq, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return fmt.Sprintf("%s%04d", prefix, max+1), nil
}
