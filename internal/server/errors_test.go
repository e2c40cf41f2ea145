package server

import (
	"errors"
	"net/http"
	"testing"

	companydomain "github.com/smallbiznis/facture/internal/company/domain"
	invoicedomain "github.com/smallbiznis/facture/internal/invoice/domain"
	quotedomain "github.com/smallbiznis/facture/internal/quote/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{
			name:       "quote locked",
			err:        quotedomain.ErrQuoteLocked,
			wantStatus: http.StatusConflict,
			wantType:   "document_locked",
			wantCode:   "quote_locked",
		},
		{
			name:       "invoice locked",
			err:        invoicedomain.ErrInvoiceLocked,
			wantStatus: http.StatusConflict,
			wantType:   "document_locked",
			wantCode:   "invoice_locked",
		},
		{
			name:       "invoice delete outside draft",
			err:        invoicedomain.ErrInvoiceDeleteNotDraft,
			wantStatus: http.StatusConflict,
			wantType:   "document_locked",
			wantCode:   "invoice_can_only_be_deleted_in_draft",
		},
		{
			name:       "invoice number taken",
			err:        invoicedomain.ErrNumberTaken,
			wantStatus: http.StatusConflict,
			wantType:   "conflict",
			wantCode:   "invoice_number_taken",
		},
		{
			name:       "slug taken",
			err:        companydomain.ErrSlugTaken,
			wantStatus: http.StatusConflict,
			wantType:   "conflict",
			wantCode:   "company_slug_taken",
		},
		{
			name:       "quote not found",
			err:        quotedomain.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "gorm record not found",
			err:        gorm.ErrRecordNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			require.Equal(t, tt.wantStatus, status)
			require.Equal(t, tt.wantType, payload.Type)
			if tt.wantCode != "" {
				require.Equal(t, tt.wantCode, payload.Code)
			}
		})
	}
}

func TestMapErrorValidation(t *testing.T) {
	status, payload := mapError(quotedomain.ErrInvalidQuantity)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	require.Equal(t, "invalid_quantity", payload.Errors[0].Code)
	require.Equal(t, "quantity", payload.Errors[0].Field)

	status, payload = mapError(invoicedomain.ErrCustomerRequired)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "customer", payload.Errors[0].Field)

	status, payload = mapError(newValidationError("number", "invalid_number", "invalid value"))
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "number", payload.Errors[0].Field)
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(quotedomain.ErrQuoteLocked)
	require.Equal(t, "conflict", typ)
	require.Equal(t, "quote_locked", code)

	typ, code = classifyErrorForLog(quotedomain.ErrInvalidStatus)
	require.Equal(t, "validation", typ)
	require.Equal(t, "invalid_status", code)

	typ, _ = classifyErrorForLog(errors.New("boom"))
	require.Equal(t, "internal", typ)
}
