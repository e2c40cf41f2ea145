package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/facture/pkg/db/pagination"
)

type ListCompanyRequest struct {
	pagination.Pagination
	Name    string
	City    string
	Country string
}

type ListCompanyResponse struct {
	pagination.PageInfo
	Companies []Company `json:"companies"`
}

type CreateCompanyRequest struct {
	Name    string
	Address string
	ZipCode string
	City    string
	Country string
	Email   string
}

type UpdateCompanyRequest struct {
	Name    *string
	Address *string
	ZipCode *string
	City    *string
	Country *string
	Email   *string
}

type Service interface {
	Create(context.Context, CreateCompanyRequest) (Company, error)
	Update(ctx context.Context, id string, req UpdateCompanyRequest) (Company, error)
	GetByID(ctx context.Context, id string) (Company, error)
	List(context.Context, ListCompanyRequest) (ListCompanyResponse, error)
}

var (
	ErrInvalidID   = errors.New("invalid_id")
	ErrInvalidName = errors.New("invalid_name")
	ErrNotFound    = errors.New("not_found")
	ErrSlugTaken   = errors.New("company_slug_taken")
)
