package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/facture/internal/clock"
	"github.com/smallbiznis/facture/internal/document"
	"github.com/smallbiznis/facture/internal/observability/metrics"
	"github.com/smallbiznis/facture/internal/quote/domain"
	"github.com/smallbiznis/facture/pkg/db"
	"github.com/smallbiznis/facture/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Directory document.CustomerDirectory
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	directory document.CustomerDirectory
	metrics   *metrics.Metrics
}

func New(p ServiceParam) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("quote.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		directory: p.Directory,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateQuoteRequest) (domain.Quote, error) {
	companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
	if err != nil {
		return domain.Quote{}, domain.ErrInvalidCompany
	}

	number := strings.TrimSpace(req.Number)
	if number == "" {
		return domain.Quote{}, domain.ErrInvalidNumber
	}

	now := s.clock.Now()
	quote := domain.Quote{
		ID:         s.genID.Generate(),
		CompanyID:  companyID,
		Number:     number,
		Status:     domain.QuoteStatusDraft,
		IssueDate:  req.IssueDate,
		ValidUntil: req.ValidUntil,
		TotalNet:   decimal.Zero,
		TotalTax:   decimal.Zero,
		TotalGross: decimal.Zero,
		Metadata:   req.Metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.applyCustomer(ctx, &quote, req.CustomerID, req.CustomerName, req.CustomerAddress, req.CustomerZip, req.CustomerCity, req.CustomerCountry); err != nil {
		return domain.Quote{}, err
	}
	if quote.CustomerID == nil && quote.CustomerName == "" {
		return domain.Quote{}, domain.ErrCustomerRequired
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.numberTaken(tx, quote.CustomerID, number, 0)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrNumberTaken
		}
		return tx.Create(&quote).Error
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Quote{}, domain.ErrNumberTaken
		}
		return domain.Quote{}, err
	}

	s.metrics.DocumentCreated("quote")
	s.log.Info("quote created",
		zap.String("quote_id", quote.ID.String()),
		zap.String("number", quote.Number),
	)
	return quote, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateQuoteRequest) (domain.Quote, error) {
	quoteID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Quote{}, domain.ErrInvalidID
	}

	var updated domain.Quote
	var transitionedTo domain.QuoteStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.findForUpdate(tx, quoteID)
		if err != nil {
			return err
		}

		if err := domain.GuardFor(quote).CanUpdate(); err != nil {
			return err
		}

		if req.Number != nil {
			number := strings.TrimSpace(*req.Number)
			if number == "" {
				return domain.ErrInvalidNumber
			}
			if number != quote.Number {
				taken, err := s.numberTaken(tx, quote.CustomerID, number, quote.ID)
				if err != nil {
					return err
				}
				if taken {
					return domain.ErrNumberTaken
				}
				quote.Number = number
			}
		}
		if req.Status != nil {
			if !req.Status.Valid() {
				return domain.ErrInvalidStatus
			}
			if *req.Status != quote.Status {
				quote.Status = *req.Status
				transitionedTo = *req.Status
			}
		}
		if err := s.applyCustomer(ctx, quote, req.CustomerID, req.CustomerName, req.CustomerAddress, req.CustomerZip, req.CustomerCity, req.CustomerCountry); err != nil {
			return err
		}
		if req.IssueDate != nil {
			quote.IssueDate = req.IssueDate
		}
		if req.ValidUntil != nil {
			quote.ValidUntil = req.ValidUntil
		}
		if req.Metadata != nil {
			quote.Metadata = req.Metadata
		}
		quote.UpdatedAt = s.clock.Now()

		if err := tx.Save(quote).Error; err != nil {
			return err
		}
		updated = *quote
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Quote{}, domain.ErrNumberTaken
		}
		return domain.Quote{}, err
	}

	if transitionedTo != "" {
		s.metrics.StatusTransition("quote", string(transitionedTo))
		s.log.Info("quote status changed",
			zap.String("quote_id", updated.ID.String()),
			zap.String("status", string(transitionedTo)),
		)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	quoteID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.findForUpdate(tx, quoteID)
		if err != nil {
			return err
		}
		if err := domain.GuardFor(quote).CanDelete(); err != nil {
			return err
		}
		if err := tx.Where("quote_id = ?", quote.ID).Delete(&domain.QuoteLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(quote).Error
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Quote, error) {
	quoteID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Quote{}, domain.ErrInvalidID
	}

	var quote domain.Quote
	if err := s.db.WithContext(ctx).Where("id = ?", quoteID).First(&quote).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Quote{}, domain.ErrNotFound
		}
		return domain.Quote{}, err
	}
	return quote, nil
}

func (s *Service) List(ctx context.Context, req domain.ListQuoteRequest) (domain.ListQuoteResponse, error) {
	stmt := s.db.WithContext(ctx).Model(&domain.Quote{})
	if companyID := strings.TrimSpace(req.CompanyID); companyID != "" {
		id, err := snowflake.ParseString(companyID)
		if err != nil {
			return domain.ListQuoteResponse{}, domain.ErrInvalidCompany
		}
		stmt = stmt.Where("company_id = ?", id)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return domain.ListQuoteResponse{}, domain.ErrInvalidStatus
		}
		stmt = stmt.Where("status = ?", *req.Status)
	}

	size := req.PageSize
	if size <= 0 {
		size = 10
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListQuoteResponse{}, err
	}
	if cursor != nil {
		stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var items []*domain.Quote
	if err := stmt.Order("created_at DESC, id DESC").Limit(size + 1).Find(&items).Error; err != nil {
		return domain.ListQuoteResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, size, func(q *domain.Quote) pagination.Cursor {
		return pagination.Cursor{ID: q.ID.String(), CreatedAt: q.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999Z07:00")}
	})

	quotes := make([]domain.Quote, 0, len(items))
	for _, item := range items {
		quotes = append(quotes, *item)
	}
	return domain.ListQuoteResponse{PageInfo: *pageInfo, Quotes: quotes}, nil
}

func (s *Service) ListLines(ctx context.Context, quoteID string) ([]domain.QuoteLine, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(quoteID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var quote domain.Quote
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&quote).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var lines []domain.QuoteLine
	if err := s.db.WithContext(ctx).Where("quote_id = ?", id).Order("created_at ASC, id ASC").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Service) CreateLine(ctx context.Context, quoteID string, req domain.CreateQuoteLineRequest) (domain.QuoteLine, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(quoteID))
	if err != nil {
		return domain.QuoteLine{}, domain.ErrInvalidID
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.QuoteLine{}, domain.ErrInvalidTitle
	}
	if req.Quantity.IsNegative() {
		return domain.QuoteLine{}, domain.ErrInvalidQuantity
	}
	if req.UnitPrice.IsNegative() {
		return domain.QuoteLine{}, domain.ErrInvalidUnitPrice
	}
	taxRate := decimal.Zero
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(100)) {
		return domain.QuoteLine{}, domain.ErrInvalidTaxRate
	}

	var line domain.QuoteLine
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.findForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := domain.GuardFor(quote).CanMutateLines(); err != nil {
			return err
		}

		now := s.clock.Now()
		totals := document.ComputeLineTotals(req.Quantity, req.UnitPrice, taxRate)
		line = domain.QuoteLine{
			ID:         s.genID.Generate(),
			QuoteID:    quote.ID,
			Title:      title,
			Quantity:   req.Quantity,
			UnitPrice:  req.UnitPrice,
			TaxRate:    taxRate,
			TotalNet:   totals.Net,
			TotalTax:   totals.Tax,
			TotalGross: totals.Gross,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if req.Description != nil {
			line.Description = strings.TrimSpace(*req.Description)
		}
		if err := tx.Create(&line).Error; err != nil {
			return err
		}
		return s.refreshTotals(tx, quote.ID)
	})
	if err != nil {
		return domain.QuoteLine{}, err
	}
	return line, nil
}

func (s *Service) UpdateLine(ctx context.Context, quoteID, lineID string, req domain.UpdateQuoteLineRequest) (domain.QuoteLine, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(quoteID))
	if err != nil {
		return domain.QuoteLine{}, domain.ErrInvalidID
	}
	lid, err := snowflake.ParseString(strings.TrimSpace(lineID))
	if err != nil {
		return domain.QuoteLine{}, domain.ErrInvalidID
	}

	var line domain.QuoteLine
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.findForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := domain.GuardFor(quote).CanMutateLines(); err != nil {
			return err
		}

		if err := tx.Where("id = ? AND quote_id = ?", lid, quote.ID).First(&line).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return domain.ErrLineNotFound
			}
			return err
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return domain.ErrInvalidTitle
			}
			line.Title = title
		}
		if req.Description != nil {
			line.Description = strings.TrimSpace(*req.Description)
		}
		if req.Quantity != nil {
			if req.Quantity.IsNegative() {
				return domain.ErrInvalidQuantity
			}
			line.Quantity = *req.Quantity
		}
		if req.UnitPrice != nil {
			if req.UnitPrice.IsNegative() {
				return domain.ErrInvalidUnitPrice
			}
			line.UnitPrice = *req.UnitPrice
		}
		if req.TaxRate != nil {
			if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
				return domain.ErrInvalidTaxRate
			}
			line.TaxRate = *req.TaxRate
		}

		totals := document.ComputeLineTotals(line.Quantity, line.UnitPrice, line.TaxRate)
		line.TotalNet = totals.Net
		line.TotalTax = totals.Tax
		line.TotalGross = totals.Gross
		line.UpdatedAt = s.clock.Now()

		if err := tx.Save(&line).Error; err != nil {
			return err
		}
		return s.refreshTotals(tx, quote.ID)
	})
	if err != nil {
		return domain.QuoteLine{}, err
	}
	return line, nil
}

func (s *Service) DeleteLine(ctx context.Context, quoteID, lineID string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(quoteID))
	if err != nil {
		return domain.ErrInvalidID
	}
	lid, err := snowflake.ParseString(strings.TrimSpace(lineID))
	if err != nil {
		return domain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.findForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := domain.GuardFor(quote).CanMutateLines(); err != nil {
			return err
		}

		res := tx.Where("id = ? AND quote_id = ?", lid, quote.ID).Delete(&domain.QuoteLine{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrLineNotFound
		}
		return s.refreshTotals(tx, quote.ID)
	})
}

func (s *Service) ExpireQuotes(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	res := s.db.WithContext(ctx).
		Model(&domain.Quote{}).
		Where("status = ? AND valid_until IS NOT NULL AND valid_until < ?", domain.QuoteStatusSent, now).
		Updates(map[string]any{
			"status":     domain.QuoteStatusExpired,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.metrics.StatusTransition("quote", string(domain.QuoteStatusExpired))
		s.log.Info("quotes expired", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func (s *Service) findForUpdate(tx *gorm.DB, id snowflake.ID) (*domain.Quote, error) {
	var quote domain.Quote
	if err := db.ForUpdate(tx).Where("id = ?", id).First(&quote).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &quote, nil
}

// numberTaken checks quote number uniqueness within the customer scope.
// Quotes without a registered customer share the NULL scope.
func (s *Service) numberTaken(tx *gorm.DB, customerID *snowflake.ID, number string, exclude snowflake.ID) (bool, error) {
	stmt := tx.Model(&domain.Quote{}).Where("number = ?", number)
	if customerID != nil {
		stmt = stmt.Where("customer_id = ?", *customerID)
	} else {
		stmt = stmt.Where("customer_id IS NULL")
	}
	if exclude != 0 {
		stmt = stmt.Where("id <> ?", exclude)
	}
	var count int64
	if err := stmt.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// refreshTotals recomputes the quote totals from its lines inside tx.
func (s *Service) refreshTotals(tx *gorm.DB, quoteID snowflake.ID) error {
	var lines []domain.QuoteLine
	if err := tx.Where("quote_id = ?", quoteID).Find(&lines).Error; err != nil {
		return err
	}
	lineTotals := make([]document.LineTotals, 0, len(lines))
	for _, line := range lines {
		lineTotals = append(lineTotals, document.LineTotals{
			Net:   line.TotalNet,
			Tax:   line.TotalTax,
			Gross: line.TotalGross,
		})
	}
	totals := document.SumTotals(lineTotals)
	return tx.Model(&domain.Quote{}).Where("id = ?", quoteID).Updates(map[string]any{
		"total_net":   totals.Net,
		"total_tax":   totals.Tax,
		"total_gross": totals.Gross,
		"updated_at":  s.clock.Now(),
	}).Error
}

// applyCustomer copies registered customer details onto the quote when a
// customer id is supplied, otherwise applies free-form fields.
func (s *Service) applyCustomer(ctx context.Context, quote *domain.Quote, customerID, name, address, zip, city, country *string) error {
	if customerID != nil {
		trimmed := strings.TrimSpace(*customerID)
		if trimmed == "" {
			quote.CustomerID = nil
		} else {
			cid, err := snowflake.ParseString(trimmed)
			if err != nil {
				return domain.ErrCustomerNotFound
			}
			details, err := s.directory.CustomerDetails(ctx, cid)
			if err != nil {
				return err
			}
			if details == nil {
				return domain.ErrCustomerNotFound
			}
			quote.CustomerID = details.CustomerID
			quote.CustomerName = details.Name
			quote.CustomerAddress = details.Address
			quote.CustomerZip = details.Zip
			quote.CustomerCity = details.City
			quote.CustomerCountry = details.Country
			return nil
		}
	}
	if name != nil {
		quote.CustomerName = strings.TrimSpace(*name)
	}
	if address != nil {
		quote.CustomerAddress = strings.TrimSpace(*address)
	}
	if zip != nil {
		quote.CustomerZip = strings.TrimSpace(*zip)
	}
	if city != nil {
		quote.CustomerCity = strings.TrimSpace(*city)
	}
	if country != nil {
		quote.CustomerCountry = strings.TrimSpace(*country)
	}
	return nil
}
