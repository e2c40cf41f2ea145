package domain

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// BuildSnapshot serializes the invoice and its lines into the denormalized
// version payload. The embedded status is forced to draft: the snapshot
// records the pre-transition state regardless of what the live row is
// about to become.
func BuildSnapshot(inv Invoice, lines []InvoiceLine) (datatypes.JSON, error) {
	inv.Status = InvoiceStatusDraft
	inv.IsLocked = false

	if lines == nil {
		lines = []InvoiceLine{}
	}
	payload := struct {
		Invoice Invoice       `json:"invoice"`
		Lines   []InvoiceLine `json:"lines"`
	}{Invoice: inv, Lines: lines}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
