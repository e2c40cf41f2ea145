package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/facture/internal/invoice/domain"
	"github.com/smallbiznis/facture/pkg/db/pagination"
)

type createInvoiceRequest struct {
	CompanyID       string         `json:"company_id"`
	CustomerID      *string        `json:"customer_id"`
	CustomerName    *string        `json:"customer_name"`
	CustomerAddress *string        `json:"customer_address"`
	CustomerZip     *string        `json:"customer_zip"`
	CustomerCity    *string        `json:"customer_city"`
	CustomerCountry *string        `json:"customer_country"`
	Number          string         `json:"number"`
	IssueDate       string         `json:"issue_date"`
	DueDate         string         `json:"due_date"`
	Metadata        map[string]any `json:"metadata"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		CompanyID:       strings.TrimSpace(req.CompanyID),
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerAddress: req.CustomerAddress,
		CustomerZip:     req.CustomerZip,
		CustomerCity:    req.CustomerCity,
		CustomerCountry: req.CustomerCountry,
		Number:          strings.TrimSpace(req.Number),
		IssueDate:       issueDate,
		DueDate:         dueDate,
		Metadata:        req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateInvoiceRequest struct {
	CustomerID      *string        `json:"customer_id"`
	CustomerName    *string        `json:"customer_name"`
	CustomerAddress *string        `json:"customer_address"`
	CustomerZip     *string        `json:"customer_zip"`
	CustomerCity    *string        `json:"customer_city"`
	CustomerCountry *string        `json:"customer_country"`
	Status          *string        `json:"status"`
	IssueDate       *string        `json:"issue_date"`
	DueDate         *string        `json:"due_date"`
	Metadata        map[string]any `json:"metadata"`
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := invoicedomain.UpdateInvoiceRequest{
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerAddress: req.CustomerAddress,
		CustomerZip:     req.CustomerZip,
		CustomerCity:    req.CustomerCity,
		CustomerCountry: req.CustomerCountry,
		Metadata:        req.Metadata,
	}
	if req.Status != nil {
		status := invoicedomain.InvoiceStatus(strings.TrimSpace(*req.Status))
		update.Status = &status
	}
	if req.IssueDate != nil {
		issueDate, err := parseOptionalDate(*req.IssueDate)
		if err != nil {
			AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
			return
		}
		update.IssueDate = issueDate
	}
	if req.DueDate != nil {
		dueDate, err := parseOptionalDate(*req.DueDate)
		if err != nil {
			AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
			return
		}
		update.DueDate = dueDate
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := s.invoiceSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CompanyID string `form:"company_id"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := invoicedomain.ListInvoiceRequest{
		Pagination: query.Pagination,
		CompanyID:  strings.TrimSpace(query.CompanyID),
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		is := invoicedomain.InvoiceStatus(status)
		req.Status = &is
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoiceLines(c *gin.Context) {
	lines, err := s.invoiceSvc.ListLines(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"lines": lines}})
}

func (s *Server) CreateInvoiceLine(c *gin.Context) {
	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	quantity, err := parseAmount("quantity", req.Quantity)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	unitPrice, err := parseAmount("unit_price", req.UnitPrice)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	taxRate, err := parseOptionalAmount("tax_rate", req.TaxRate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.CreateLine(c.Request.Context(), c.Param("id"), invoicedomain.CreateInvoiceLineRequest{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TaxRate:     taxRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoiceLine(c *gin.Context) {
	var req lineUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	quantity, err := parseOptionalAmount("quantity", req.Quantity)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	unitPrice, err := parseOptionalAmount("unit_price", req.UnitPrice)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	taxRate, err := parseOptionalAmount("tax_rate", req.TaxRate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.UpdateLine(c.Request.Context(), c.Param("id"), c.Param("line_id"), invoicedomain.UpdateInvoiceLineRequest{
		Title:       req.Title,
		Description: req.Description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TaxRate:     taxRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoiceLine(c *gin.Context) {
	if err := s.invoiceSvc.DeleteLine(c.Request.Context(), c.Param("id"), c.Param("line_id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListInvoiceVersions(c *gin.Context) {
	versions, err := s.invoiceSvc.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"versions": versions}})
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	doc, err := s.invoiceSvc.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", doc)
}

func isInvoiceValidationError(err error) bool {
	switch err {
	case invoicedomain.ErrInvalidID,
		invoicedomain.ErrInvalidCompany,
		invoicedomain.ErrCustomerRequired,
		invoicedomain.ErrCustomerNotFound,
		invoicedomain.ErrInvalidStatus,
		invoicedomain.ErrInvalidTitle,
		invoicedomain.ErrInvalidQuantity,
		invoicedomain.ErrInvalidUnitPrice,
		invoicedomain.ErrInvalidTaxRate:
		return true
	default:
		return false
	}
}
