package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/facture/internal/company/domain"
	"github.com/smallbiznis/facture/internal/clock"
	"github.com/smallbiznis/facture/internal/document"
	"github.com/smallbiznis/facture/pkg/db"
	"github.com/smallbiznis/facture/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("company.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCompanyRequest) (domain.Company, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Company{}, domain.ErrInvalidName
	}

	now := s.clock.Now()
	company := domain.Company{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		Address:   strings.TrimSpace(req.Address),
		ZipCode:   strings.TrimSpace(req.ZipCode),
		City:      strings.TrimSpace(req.City),
		Country:   strings.TrimSpace(req.Country),
		Email:     strings.TrimSpace(req.Email),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &company); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Company{}, domain.ErrSlugTaken
		}
		return domain.Company{}, err
	}

	s.log.Info("company created", zap.String("company_id", company.ID.String()))
	return company, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateCompanyRequest) (domain.Company, error) {
	companyID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Company{}, domain.ErrInvalidID
	}

	company, err := s.repo.FindByID(ctx, s.db, companyID)
	if err != nil {
		return domain.Company{}, err
	}
	if company == nil {
		return domain.Company{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Company{}, domain.ErrInvalidName
		}
		company.Name = name
	}
	if req.Address != nil {
		company.Address = strings.TrimSpace(*req.Address)
	}
	if req.ZipCode != nil {
		company.ZipCode = strings.TrimSpace(*req.ZipCode)
	}
	if req.City != nil {
		company.City = strings.TrimSpace(*req.City)
	}
	if req.Country != nil {
		company.Country = strings.TrimSpace(*req.Country)
	}
	if req.Email != nil {
		company.Email = strings.TrimSpace(*req.Email)
	}
	company.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, s.db, company); err != nil {
		return domain.Company{}, err
	}
	return *company, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Company, error) {
	companyID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Company{}, domain.ErrInvalidID
	}

	company, err := s.repo.FindByID(ctx, s.db, companyID)
	if err != nil {
		return domain.Company{}, err
	}
	if company == nil {
		return domain.Company{}, domain.ErrNotFound
	}
	return *company, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCompanyRequest) (domain.ListCompanyResponse, error) {
	filter := domain.ListCompanyFilter{
		Name:    strings.TrimSpace(req.Name),
		City:    strings.TrimSpace(req.City),
		Country: strings.TrimSpace(req.Country),
	}

	items, err := s.repo.List(ctx, s.db, filter, req.Pagination)
	if err != nil {
		return domain.ListCompanyResponse{}, err
	}

	size := req.PageSize
	if size <= 0 {
		size = 10
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, size, func(c *domain.Company) pagination.Cursor {
		return pagination.Cursor{ID: c.ID.String(), CreatedAt: c.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999Z07:00")}
	})

	companies := make([]domain.Company, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		companies = append(companies, *item)
	}

	return domain.ListCompanyResponse{PageInfo: *pageInfo, Companies: companies}, nil
}

// Directory adapts the company registry to the document customer lookup.
type Directory struct {
	db   *gorm.DB
	repo domain.Repository
}

func NewDirectory(p ServiceParam) document.CustomerDirectory {
	return &Directory{db: p.DB, repo: p.Repo}
}

func (d *Directory) CustomerDetails(ctx context.Context, id snowflake.ID) (*document.CustomerDetails, error) {
	company, err := d.repo.FindByID(ctx, d.db, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, nil
	}
	companyID := company.ID
	return &document.CustomerDetails{
		CustomerID: &companyID,
		Name:       company.Name,
		Address:    company.Address,
		Zip:        company.ZipCode,
		City:       company.City,
		Country:    company.Country,
	}, nil
}
