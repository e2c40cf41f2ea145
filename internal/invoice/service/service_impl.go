package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/facture/internal/clock"
	"github.com/smallbiznis/facture/internal/document"
	"github.com/smallbiznis/facture/internal/invoice/domain"
	"github.com/smallbiznis/facture/internal/observability/metrics"
	"github.com/smallbiznis/facture/internal/ratelimit"
	"github.com/smallbiznis/facture/pkg/db"
	"github.com/smallbiznis/facture/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// numberingAttempts bounds the retry loop when a generated number loses the
// race against a concurrent create for the same issuer and year.
const numberingAttempts = 3

type ServiceParam struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Directory      document.CustomerDirectory
	NumberingGuard *ratelimit.NumberingGuard `optional:"true"`
	Renderer       domain.PDFRenderer        `optional:"true"`
	Metrics        *metrics.Metrics          `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	directory      document.CustomerDirectory
	numberingGuard *ratelimit.NumberingGuard
	renderer       domain.PDFRenderer
	metrics        *metrics.Metrics
}

func New(p ServiceParam) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("invoice.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		directory:      p.Directory,
		numberingGuard: p.NumberingGuard,
		renderer:       p.Renderer,
		metrics:        p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
	if err != nil {
		return domain.Invoice{}, domain.ErrInvalidCompany
	}

	now := s.clock.Now()
	invoice := domain.Invoice{
		ID:         s.genID.Generate(),
		CompanyID:  companyID,
		Number:     strings.TrimSpace(req.Number),
		Status:     domain.InvoiceStatusDraft,
		IssueDate:  req.IssueDate,
		DueDate:    req.DueDate,
		TotalNet:   decimal.Zero,
		TotalTax:   decimal.Zero,
		TotalGross: decimal.Zero,
		Metadata:   req.Metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.applyCustomer(ctx, &invoice, req.CustomerID, req.CustomerName, req.CustomerAddress, req.CustomerZip, req.CustomerCity, req.CustomerCountry); err != nil {
		return domain.Invoice{}, err
	}
	if invoice.CustomerID == nil && invoice.CustomerName == "" {
		return domain.Invoice{}, domain.ErrCustomerRequired
	}

	generate := invoice.Number == ""
	if generate {
		release, err := s.numberingGuard.Acquire(ctx, companyID.String(), now.Year())
		if err != nil {
			return domain.Invoice{}, err
		}
		defer release()
	}

	attempts := 1
	if generate {
		attempts = numberingAttempts
	}
	for attempt := 0; attempt < attempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if generate {
				number, err := nextNumber(tx, companyID, now.Year())
				if err != nil {
					return err
				}
				invoice.Number = number
			}
			return tx.Create(&invoice).Error
		})
		if err == nil {
			break
		}
		if !db.IsDuplicateKeyErr(err) {
			return domain.Invoice{}, err
		}
		if !generate || attempt == attempts-1 {
			return domain.Invoice{}, domain.ErrNumberTaken
		}
		s.metrics.NumberingRetry()
		s.log.Warn("invoice number collision, retrying",
			zap.String("company_id", companyID.String()),
			zap.String("number", invoice.Number),
		)
	}

	s.metrics.DocumentCreated("invoice")
	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
	)
	return invoice, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateInvoiceRequest) (domain.Invoice, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	var updated domain.Invoice
	var transitionedTo domain.InvoiceStatus
	var snapshotted bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.findForUpdate(tx, invoiceID)
		if err != nil {
			return err
		}

		if err := domain.GuardFor(invoice).CanUpdate(); err != nil {
			return err
		}

		oldStatus := invoice.Status
		// Copy taken under the row lock, before any request field is applied.
		// A draft to sent transition versions this state, not the updated one.
		previous := *invoice
		if req.Status != nil {
			if !req.Status.Valid() {
				return domain.ErrInvalidStatus
			}
			if *req.Status != invoice.Status {
				invoice.Status = *req.Status
				transitionedTo = *req.Status
			}
		}
		if err := s.applyCustomer(ctx, invoice, req.CustomerID, req.CustomerName, req.CustomerAddress, req.CustomerZip, req.CustomerCity, req.CustomerCountry); err != nil {
			return err
		}
		if req.IssueDate != nil {
			invoice.IssueDate = req.IssueDate
		}
		if req.DueDate != nil {
			invoice.DueDate = req.DueDate
		}
		if req.Metadata != nil {
			invoice.Metadata = req.Metadata
		}
		invoice.UpdatedAt = s.clock.Now()

		// The draft to sent transition freezes the document: the pre-transition
		// state is versioned first, then the lock is set in the same transaction.
		if oldStatus == domain.InvoiceStatusDraft && invoice.Status == domain.InvoiceStatusSent {
			if err := s.captureSnapshot(tx, &previous); err != nil {
				return err
			}
			invoice.IsLocked = true
			snapshotted = true
		}

		if err := tx.Save(invoice).Error; err != nil {
			return err
		}
		updated = *invoice
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	if snapshotted {
		s.metrics.SnapshotCaptured()
	}
	if transitionedTo != "" {
		s.metrics.StatusTransition("invoice", string(transitionedTo))
		s.log.Info("invoice status changed",
			zap.String("invoice_id", updated.ID.String()),
			zap.String("status", string(transitionedTo)),
			zap.Bool("locked", updated.IsLocked),
		)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.findForUpdate(tx, invoiceID)
		if err != nil {
			return err
		}
		if err := domain.GuardFor(invoice).CanDelete(); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&domain.InvoiceLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(invoice).Error
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	var invoice domain.Invoice
	if err := s.db.WithContext(ctx).Where("id = ?", invoiceID).First(&invoice).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Invoice{}, domain.ErrNotFound
		}
		return domain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	stmt := s.db.WithContext(ctx).Model(&domain.Invoice{})
	if companyID := strings.TrimSpace(req.CompanyID); companyID != "" {
		id, err := snowflake.ParseString(companyID)
		if err != nil {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidCompany
		}
		stmt = stmt.Where("company_id = ?", id)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidStatus
		}
		stmt = stmt.Where("status = ?", *req.Status)
	}

	size := req.PageSize
	if size <= 0 {
		size = 10
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}
	if cursor != nil {
		stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var items []*domain.Invoice
	if err := stmt.Order("created_at DESC, id DESC").Limit(size + 1).Find(&items).Error; err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, size, func(inv *domain.Invoice) pagination.Cursor {
		return pagination.Cursor{ID: inv.ID.String(), CreatedAt: inv.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999Z07:00")}
	})

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		invoices = append(invoices, *item)
	}
	return domain.ListInvoiceResponse{PageInfo: *pageInfo, Invoices: invoices}, nil
}

func (s *Service) ListLines(ctx context.Context, invoiceID string) ([]domain.InvoiceLine, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var invoice domain.Invoice
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var lines []domain.InvoiceLine
	if err := s.db.WithContext(ctx).Where("invoice_id = ?", id).Order("created_at ASC, id ASC").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Service) CreateLine(ctx context.Context, invoiceID string, req domain.CreateInvoiceLineRequest) (domain.InvoiceLine, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil {
		return domain.InvoiceLine{}, domain.ErrInvalidID
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.InvoiceLine{}, domain.ErrInvalidTitle
	}
	if req.Quantity.IsNegative() {
		return domain.InvoiceLine{}, domain.ErrInvalidQuantity
	}
	if req.UnitPrice.IsNegative() {
		return domain.InvoiceLine{}, domain.ErrInvalidUnitPrice
	}
	taxRate := decimal.Zero
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(100)) {
		return domain.InvoiceLine{}, domain.ErrInvalidTaxRate
	}

	var line domain.InvoiceLine
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.findForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := domain.GuardFor(invoice).CanMutateLines(); err != nil {
			return err
		}

		now := s.clock.Now()
		totals := document.ComputeLineTotals(req.Quantity, req.UnitPrice, taxRate)
		line = domain.InvoiceLine{
			ID:         s.genID.Generate(),
			InvoiceID:  invoice.ID,
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
		return s.refreshTotals(tx, invoice.ID)
	})
	if err != nil {
		return domain.InvoiceLine{}, err
	}
	return line, nil
}

func (s *Service) UpdateLine(ctx context.Context, invoiceID, lineID string, req domain.UpdateInvoiceLineRequest) (domain.InvoiceLine, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil {
		return domain.InvoiceLine{}, domain.ErrInvalidID
	}
	lid, err := snowflake.ParseString(strings.TrimSpace(lineID))
	if err != nil {
		return domain.InvoiceLine{}, domain.ErrInvalidID
	}

	var line domain.InvoiceLine
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.findForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := domain.GuardFor(invoice).CanMutateLines(); err != nil {
			return err
		}

		if err := tx.Where("id = ? AND invoice_id = ?", lid, invoice.ID).First(&line).Error; err != nil {
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
		return s.refreshTotals(tx, invoice.ID)
	})
	if err != nil {
		return domain.InvoiceLine{}, err
	}
	return line, nil
}

func (s *Service) DeleteLine(ctx context.Context, invoiceID, lineID string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil {
		return domain.ErrInvalidID
	}
	lid, err := snowflake.ParseString(strings.TrimSpace(lineID))
	if err != nil {
		return domain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.findForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := domain.GuardFor(invoice).CanMutateLines(); err != nil {
			return err
		}

		res := tx.Where("id = ? AND invoice_id = ?", lid, invoice.ID).Delete(&domain.InvoiceLine{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrLineNotFound
		}
		return s.refreshTotals(tx, invoice.ID)
	})
}

func (s *Service) ListVersions(ctx context.Context, invoiceID string) ([]domain.InvoiceVersion, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var invoice domain.Invoice
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var versions []domain.InvoiceVersion
	if err := s.db.WithContext(ctx).Where("invoice_id = ?", id).Order("created_at ASC, id ASC").Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (s *Service) RenderPDF(ctx context.Context, invoiceID string) ([]byte, error) {
	if s.renderer == nil {
		return nil, domain.ErrNotFound
	}

	invoice, err := s.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	lines, err := s.ListLines(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderInvoice(ctx, invoice, lines)
}

func (s *Service) findForUpdate(tx *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	if err := db.ForUpdate(tx).Where("id = ?", id).First(&invoice).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// captureSnapshot versions the invoice's pre-update draft state together
// with its lines. Runs inside the transition transaction; the caller passes
// the row as it was loaded under the lock, before request fields applied.
func (s *Service) captureSnapshot(tx *gorm.DB, invoice *domain.Invoice) error {
	var lines []domain.InvoiceLine
	if err := tx.Where("invoice_id = ?", invoice.ID).Order("created_at ASC, id ASC").Find(&lines).Error; err != nil {
		return err
	}

	snapshot, err := domain.BuildSnapshot(*invoice, lines)
	if err != nil {
		return err
	}

	version := domain.InvoiceVersion{
		ID:        s.genID.Generate(),
		InvoiceID: invoice.ID,
		Snapshot:  snapshot,
		CreatedAt: s.clock.Now(),
	}
	return tx.Create(&version).Error
}

// refreshTotals recomputes the invoice totals from its lines inside tx.
func (s *Service) refreshTotals(tx *gorm.DB, invoiceID snowflake.ID) error {
	var lines []domain.InvoiceLine
	if err := tx.Where("invoice_id = ?", invoiceID).Find(&lines).Error; err != nil {
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
	return tx.Model(&domain.Invoice{}).Where("id = ?", invoiceID).Updates(map[string]any{
		"total_net":   totals.Net,
		"total_tax":   totals.Tax,
		"total_gross": totals.Gross,
		"updated_at":  s.clock.Now(),
	}).Error
}

// applyCustomer copies registered customer details onto the invoice when a
// customer id is supplied, otherwise applies free-form fields.
func (s *Service) applyCustomer(ctx context.Context, invoice *domain.Invoice, customerID, name, address, zip, city, country *string) error {
	if customerID != nil {
		trimmed := strings.TrimSpace(*customerID)
		if trimmed == "" {
			invoice.CustomerID = nil
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
			invoice.CustomerID = details.CustomerID
			invoice.CustomerName = details.Name
			invoice.CustomerAddress = details.Address
			invoice.CustomerZip = details.Zip
			invoice.CustomerCity = details.City
			invoice.CustomerCountry = details.Country
			return nil
		}
	}
	if name != nil {
		invoice.CustomerName = strings.TrimSpace(*name)
	}
	if address != nil {
		invoice.CustomerAddress = strings.TrimSpace(*address)
	}
	if zip != nil {
		invoice.CustomerZip = strings.TrimSpace(*zip)
	}
	if city != nil {
		invoice.CustomerCity = strings.TrimSpace(*city)
	}
	if country != nil {
		invoice.CustomerCountry = strings.TrimSpace(*country)
	}
	return nil
}
