package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	companydomain "github.com/smallbiznis/facture/internal/company/domain"
	"github.com/smallbiznis/facture/pkg/db/pagination"
)

type createCompanyRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	ZipCode string `json:"zip_code"`
	City    string `json:"city"`
	Country string `json:"country"`
	Email   string `json:"email"`
}

func (s *Server) CreateCompany(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.companySvc.Create(c.Request.Context(), companydomain.CreateCompanyRequest{
		Name:    strings.TrimSpace(req.Name),
		Address: strings.TrimSpace(req.Address),
		ZipCode: strings.TrimSpace(req.ZipCode),
		City:    strings.TrimSpace(req.City),
		Country: strings.TrimSpace(req.Country),
		Email:   strings.TrimSpace(req.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCompanyRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	ZipCode *string `json:"zip_code"`
	City    *string `json:"city"`
	Country *string `json:"country"`
	Email   *string `json:"email"`
}

func (s *Server) UpdateCompany(c *gin.Context) {
	var req updateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.companySvc.Update(c.Request.Context(), c.Param("id"), companydomain.UpdateCompanyRequest{
		Name:    req.Name,
		Address: req.Address,
		ZipCode: req.ZipCode,
		City:    req.City,
		Country: req.Country,
		Email:   req.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCompanyByID(c *gin.Context) {
	resp, err := s.companySvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCompanies(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name    string `form:"name"`
		City    string `form:"city"`
		Country string `form:"country"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.companySvc.List(c.Request.Context(), companydomain.ListCompanyRequest{
		Pagination: query.Pagination,
		Name:       strings.TrimSpace(query.Name),
		City:       strings.TrimSpace(query.City),
		Country:    strings.TrimSpace(query.Country),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isCompanyValidationError(err error) bool {
	switch err {
	case companydomain.ErrInvalidID,
		companydomain.ErrInvalidName:
		return true
	default:
		return false
	}
}
