package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	quotedomain "github.com/smallbiznis/facture/internal/quote/domain"
	"github.com/smallbiznis/facture/pkg/db/pagination"
)

type createQuoteRequest struct {
	CompanyID       string         `json:"company_id"`
	CustomerID      *string        `json:"customer_id"`
	CustomerName    *string        `json:"customer_name"`
	CustomerAddress *string        `json:"customer_address"`
	CustomerZip     *string        `json:"customer_zip"`
	CustomerCity    *string        `json:"customer_city"`
	CustomerCountry *string        `json:"customer_country"`
	Number          string         `json:"number"`
	IssueDate       string         `json:"issue_date"`
	ValidUntil      string         `json:"valid_until"`
	Metadata        map[string]any `json:"metadata"`
}

func (s *Server) CreateQuote(c *gin.Context) {
	var req createQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
		return
	}
	validUntil, err := parseOptionalDate(req.ValidUntil)
	if err != nil {
		AbortWithError(c, newValidationError("valid_until", "invalid_valid_until", "invalid valid_until"))
		return
	}

	resp, err := s.quoteSvc.Create(c.Request.Context(), quotedomain.CreateQuoteRequest{
		CompanyID:       strings.TrimSpace(req.CompanyID),
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerAddress: req.CustomerAddress,
		CustomerZip:     req.CustomerZip,
		CustomerCity:    req.CustomerCity,
		CustomerCountry: req.CustomerCountry,
		Number:          strings.TrimSpace(req.Number),
		IssueDate:       issueDate,
		ValidUntil:      validUntil,
		Metadata:        req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateQuoteRequest struct {
	CustomerID      *string        `json:"customer_id"`
	CustomerName    *string        `json:"customer_name"`
	CustomerAddress *string        `json:"customer_address"`
	CustomerZip     *string        `json:"customer_zip"`
	CustomerCity    *string        `json:"customer_city"`
	CustomerCountry *string        `json:"customer_country"`
	Number          *string        `json:"number"`
	Status          *string        `json:"status"`
	IssueDate       *string        `json:"issue_date"`
	ValidUntil      *string        `json:"valid_until"`
	Metadata        map[string]any `json:"metadata"`
}

func (s *Server) UpdateQuote(c *gin.Context) {
	var req updateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := quotedomain.UpdateQuoteRequest{
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerAddress: req.CustomerAddress,
		CustomerZip:     req.CustomerZip,
		CustomerCity:    req.CustomerCity,
		CustomerCountry: req.CustomerCountry,
		Number:          req.Number,
		Metadata:        req.Metadata,
	}
	if req.Status != nil {
		status := quotedomain.QuoteStatus(strings.TrimSpace(*req.Status))
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
	if req.ValidUntil != nil {
		validUntil, err := parseOptionalDate(*req.ValidUntil)
		if err != nil {
			AbortWithError(c, newValidationError("valid_until", "invalid_valid_until", "invalid valid_until"))
			return
		}
		update.ValidUntil = validUntil
	}

	resp, err := s.quoteSvc.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteQuote(c *gin.Context) {
	if err := s.quoteSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetQuoteByID(c *gin.Context) {
	resp, err := s.quoteSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListQuotes(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CompanyID string `form:"company_id"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := quotedomain.ListQuoteRequest{
		Pagination: query.Pagination,
		CompanyID:  strings.TrimSpace(query.CompanyID),
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		qs := quotedomain.QuoteStatus(status)
		req.Status = &qs
	}

	resp, err := s.quoteSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListQuoteLines(c *gin.Context) {
	lines, err := s.quoteSvc.ListLines(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"lines": lines}})
}

type lineRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Quantity    string  `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	TaxRate     *string `json:"tax_rate"`
}

type lineUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Quantity    *string `json:"quantity"`
	UnitPrice   *string `json:"unit_price"`
	TaxRate     *string `json:"tax_rate"`
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, newValidationError(field, "invalid_"+field, "invalid "+field)
	}
	return value, nil
}

func parseOptionalAmount(field string, raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	value, err := parseAmount(field, *raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (s *Server) CreateQuoteLine(c *gin.Context) {
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

	resp, err := s.quoteSvc.CreateLine(c.Request.Context(), c.Param("id"), quotedomain.CreateQuoteLineRequest{
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

func (s *Server) UpdateQuoteLine(c *gin.Context) {
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

	resp, err := s.quoteSvc.UpdateLine(c.Request.Context(), c.Param("id"), c.Param("line_id"), quotedomain.UpdateQuoteLineRequest{
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

func (s *Server) DeleteQuoteLine(c *gin.Context) {
	if err := s.quoteSvc.DeleteLine(c.Request.Context(), c.Param("id"), c.Param("line_id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ExpireQuotes(c *gin.Context) {
	count, err := s.quoteSvc.ExpireQuotes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"expired": count}})
}

func isQuoteValidationError(err error) bool {
	switch err {
	case quotedomain.ErrInvalidID,
		quotedomain.ErrInvalidCompany,
		quotedomain.ErrInvalidNumber,
		quotedomain.ErrCustomerRequired,
		quotedomain.ErrCustomerNotFound,
		quotedomain.ErrInvalidStatus,
		quotedomain.ErrInvalidTitle,
		quotedomain.ErrInvalidQuantity,
		quotedomain.ErrInvalidUnitPrice,
		quotedomain.ErrInvalidTaxRate:
		return true
	default:
		return false
	}
}
