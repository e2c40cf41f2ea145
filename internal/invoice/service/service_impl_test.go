package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/facture/internal/clock"
	"github.com/smallbiznis/facture/internal/document"
	"github.com/smallbiznis/facture/internal/invoice/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubDirectory struct {
	companies map[snowflake.ID]document.CustomerDetails
}

func (d *stubDirectory) CustomerDetails(_ context.Context, id snowflake.ID) (*document.CustomerDetails, error) {
	details, ok := d.companies[id]
	if !ok {
		return nil, nil
	}
	return &details, nil
}

type testEnv struct {
	svc       domain.Service
	db        *gorm.DB
	clock     *clock.FakeClock
	directory *stubDirectory
	genID     *snowflake.Node
	companyID snowflake.ID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(&domain.Invoice{}, &domain.InvoiceLine{}, &domain.InvoiceVersion{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC))
	directory := &stubDirectory{companies: map[snowflake.ID]document.CustomerDetails{}}

	svc := New(ServiceParam{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fakeClock,
		Directory: directory,
	})

	return &testEnv{
		svc:       svc,
		db:        conn,
		clock:     fakeClock,
		directory: directory,
		genID:     node,
		companyID: node.Generate(),
	}
}

func (e *testEnv) createDraft(t *testing.T) domain.Invoice {
	t.Helper()
	name := "Acme SARL"
	invoice, err := e.svc.Create(context.Background(), domain.CreateInvoiceRequest{
		CompanyID:    e.companyID.String(),
		CustomerName: &name,
	})
	require.NoError(t, err)
	return invoice
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestInvoiceNumberingSequence(t *testing.T) {
	env := newTestEnv(t)

	for i, want := range []string{"F-2026-0001", "F-2026-0002", "F-2026-0003"} {
		invoice := env.createDraft(t)
		require.Equal(t, want, invoice.Number, "invoice %d", i+1)
	}

	// A different issuer starts its own sequence.
	name := "Other"
	other, err := env.svc.Create(context.Background(), domain.CreateInvoiceRequest{
		CompanyID:    env.genID.Generate().String(),
		CustomerName: &name,
	})
	require.NoError(t, err)
	require.Equal(t, "F-2026-0001", other.Number)
}

func TestInvoiceNumberingScopedByYear(t *testing.T) {
	env := newTestEnv(t)

	first := env.createDraft(t)
	require.Equal(t, "F-2026-0001", first.Number)

	env.clock.Advance(366 * 24 * time.Hour)

	next := env.createDraft(t)
	require.Equal(t, "F-2027-0001", next.Number)
}

func TestInvoiceNumberingSkipsDeleted(t *testing.T) {
	env := newTestEnv(t)

	first := env.createDraft(t)
	require.Equal(t, "F-2026-0001", first.Number)

	// A deleted draft keeps its number reserved.
	require.NoError(t, env.svc.Delete(context.Background(), first.ID.String()))

	next := env.createDraft(t)
	require.Equal(t, "F-2026-0002", next.Number)
}

func TestInvoiceExplicitNumber(t *testing.T) {
	env := newTestEnv(t)

	name := "Acme SARL"
	invoice, err := env.svc.Create(context.Background(), domain.CreateInvoiceRequest{
		CompanyID:    env.companyID.String(),
		CustomerName: &name,
		Number:       "CUSTOM-1",
	})
	require.NoError(t, err)
	require.Equal(t, "CUSTOM-1", invoice.Number)

	_, err = env.svc.Create(context.Background(), domain.CreateInvoiceRequest{
		CompanyID:    env.companyID.String(),
		CustomerName: &name,
		Number:       "CUSTOM-1",
	})
	require.ErrorIs(t, err, domain.ErrNumberTaken)
}

func TestInvoiceCreateResolvesRegisteredCustomer(t *testing.T) {
	env := newTestEnv(t)

	customerID := env.genID.Generate()
	env.directory.companies[customerID] = document.CustomerDetails{
		CustomerID: &customerID,
		Name:       "Globex",
		Address:    "12 avenue des Champs",
		Zip:        "75008",
		City:       "Paris",
		Country:    "FR",
	}

	cid := customerID.String()
	invoice, err := env.svc.Create(context.Background(), domain.CreateInvoiceRequest{
		CompanyID:  env.companyID.String(),
		CustomerID: &cid,
	})
	require.NoError(t, err)
	require.Equal(t, "Globex", invoice.CustomerName)
	require.Equal(t, "75008", invoice.CustomerZip)

	unknown := env.genID.Generate().String()
	_, err = env.svc.Create(context.Background(), domain.CreateInvoiceRequest{
		CompanyID:  env.companyID.String(),
		CustomerID: &unknown,
	})
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = env.svc.Create(context.Background(), domain.CreateInvoiceRequest{
		CompanyID: env.companyID.String(),
	})
	require.ErrorIs(t, err, domain.ErrCustomerRequired)
}

func TestInvoiceLineTotalsRollUp(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.createDraft(t)

	taxRate := d("20")
	line, err := env.svc.CreateLine(context.Background(), invoice.ID.String(), domain.CreateInvoiceLineRequest{
		Title:     "Consulting",
		Quantity:  d("2.5"),
		UnitPrice: d("100.50"),
		TaxRate:   &taxRate,
	})
	require.NoError(t, err)
	require.True(t, line.TotalNet.Equal(d("251.25")), "net=%s", line.TotalNet)
	require.True(t, line.TotalTax.Equal(d("50.25")), "tax=%s", line.TotalTax)
	require.True(t, line.TotalGross.Equal(d("301.50")), "gross=%s", line.TotalGross)

	reloaded, err := env.svc.GetByID(context.Background(), invoice.ID.String())
	require.NoError(t, err)
	require.True(t, reloaded.TotalNet.Equal(d("251.25")))
	require.True(t, reloaded.TotalGross.Equal(d("301.50")))
}

func TestInvoiceSendLocksAndSnapshots(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.createDraft(t)

	taxRate := d("10")
	_, err := env.svc.CreateLine(context.Background(), invoice.ID.String(), domain.CreateInvoiceLineRequest{
		Title:     "Subscription",
		Quantity:  d("1"),
		UnitPrice: d("200"),
		TaxRate:   &taxRate,
	})
	require.NoError(t, err)

	sent := domain.InvoiceStatusSent
	updated, err := env.svc.Update(context.Background(), invoice.ID.String(), domain.UpdateInvoiceRequest{Status: &sent})
	require.NoError(t, err)
	require.Equal(t, domain.InvoiceStatusSent, updated.Status)
	require.True(t, updated.IsLocked)

	versions, err := env.svc.ListVersions(context.Background(), invoice.ID.String())
	require.NoError(t, err)
	require.Len(t, versions, 1)

	// The snapshot records the pre-transition draft state, fully denormalized.
	var payload struct {
		Invoice struct {
			Number   string `json:"number"`
			Status   string `json:"status"`
			IsLocked bool   `json:"is_locked"`
		} `json:"invoice"`
		Lines []struct {
			Title      string `json:"title"`
			TotalGross string `json:"total_gross"`
		} `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(versions[0].Snapshot, &payload))
	require.Equal(t, invoice.Number, payload.Invoice.Number)
	require.Equal(t, "draft", payload.Invoice.Status)
	require.False(t, payload.Invoice.IsLocked)
	require.Len(t, payload.Lines, 1)
	require.Equal(t, "Subscription", payload.Lines[0].Title)
	require.Equal(t, "220", payload.Lines[0].TotalGross)
}

func TestInvoiceSendSnapshotsPreUpdateState(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.createDraft(t)

	// One update both renames the customer and sends the invoice. The
	// version must hold the values the draft had before this update.
	sent := domain.InvoiceStatusSent
	renamed := "Renamed Corp"
	city := "Lille"
	updated, err := env.svc.Update(context.Background(), invoice.ID.String(), domain.UpdateInvoiceRequest{
		Status:       &sent,
		CustomerName: &renamed,
		CustomerCity: &city,
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed Corp", updated.CustomerName)
	require.Equal(t, "Lille", updated.CustomerCity)

	versions, err := env.svc.ListVersions(context.Background(), invoice.ID.String())
	require.NoError(t, err)
	require.Len(t, versions, 1)

	var payload struct {
		Invoice struct {
			CustomerName string `json:"customer_name"`
			CustomerCity string `json:"customer_city"`
			Status       string `json:"status"`
		} `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(versions[0].Snapshot, &payload))
	require.Equal(t, "Acme SARL", payload.Invoice.CustomerName)
	require.Empty(t, payload.Invoice.CustomerCity)
	require.Equal(t, "draft", payload.Invoice.Status)
}

func TestInvoiceUpdateResolvesRegisteredCustomer(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.createDraft(t)
	require.Equal(t, "Acme SARL", invoice.CustomerName)

	customerID := env.genID.Generate()
	env.directory.companies[customerID] = document.CustomerDetails{
		CustomerID: &customerID,
		Name:       "Globex",
		Address:    "12 avenue des Champs",
		Zip:        "75008",
		City:       "Paris",
		Country:    "FR",
	}

	// Supplying only customer_id repopulates the snapshot fields from the
	// registry at the time of the update.
	cid := customerID.String()
	updated, err := env.svc.Update(context.Background(), invoice.ID.String(), domain.UpdateInvoiceRequest{
		CustomerID: &cid,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CustomerID)
	require.Equal(t, customerID, *updated.CustomerID)
	require.Equal(t, "Globex", updated.CustomerName)
	require.Equal(t, "12 avenue des Champs", updated.CustomerAddress)
	require.Equal(t, "75008", updated.CustomerZip)
	require.Equal(t, "Paris", updated.CustomerCity)
	require.Equal(t, "FR", updated.CustomerCountry)

	// Clearing the reference keeps the document on free-form fields.
	empty := ""
	name := "Walk-in"
	updated, err = env.svc.Update(context.Background(), invoice.ID.String(), domain.UpdateInvoiceRequest{
		CustomerID:   &empty,
		CustomerName: &name,
	})
	require.NoError(t, err)
	require.Nil(t, updated.CustomerID)
	require.Equal(t, "Walk-in", updated.CustomerName)

	unknown := env.genID.Generate().String()
	_, err = env.svc.Update(context.Background(), invoice.ID.String(), domain.UpdateInvoiceRequest{
		CustomerID: &unknown,
	})
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestInvoiceLockedAfterSend(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.createDraft(t)

	sent := domain.InvoiceStatusSent
	_, err := env.svc.Update(context.Background(), invoice.ID.String(), domain.UpdateInvoiceRequest{Status: &sent})
	require.NoError(t, err)

	// Every further mutation is rejected, including status changes.
	paid := domain.InvoiceStatusPaid
	_, err = env.svc.Update(context.Background(), invoice.ID.String(), domain.UpdateInvoiceRequest{Status: &paid})
	require.ErrorIs(t, err, domain.ErrInvoiceLocked)

	_, err = env.svc.CreateLine(context.Background(), invoice.ID.String(), domain.CreateInvoiceLineRequest{
		Title:     "blocked",
		Quantity:  d("1"),
		UnitPrice: d("1"),
	})
	require.ErrorIs(t, err, domain.ErrInvoiceLocked)

	err = env.svc.Delete(context.Background(), invoice.ID.String())
	require.ErrorIs(t, err, domain.ErrInvoiceLocked)

	// Only one version exists no matter how many mutations were attempted.
	versions, err := env.svc.ListVersions(context.Background(), invoice.ID.String())
	require.NoError(t, err)
	require.Len(t, versions, 1)
}

func TestInvoiceCanceledBlocksDeleteWithoutLock(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.createDraft(t)

	// draft -> canceled does not lock and does not snapshot.
	canceled := domain.InvoiceStatusCanceled
	updated, err := env.svc.Update(context.Background(), invoice.ID.String(), domain.UpdateInvoiceRequest{Status: &canceled})
	require.NoError(t, err)
	require.False(t, updated.IsLocked)

	versions, err := env.svc.ListVersions(context.Background(), invoice.ID.String())
	require.NoError(t, err)
	require.Empty(t, versions)

	err = env.svc.Delete(context.Background(), invoice.ID.String())
	require.ErrorIs(t, err, domain.ErrInvoiceDeleteNotDraft)
}

func TestInvoiceDraftDeleteRemovesLines(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.createDraft(t)

	_, err := env.svc.CreateLine(context.Background(), invoice.ID.String(), domain.CreateInvoiceLineRequest{
		Title:     "Item",
		Quantity:  d("1"),
		UnitPrice: d("5"),
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(context.Background(), invoice.ID.String()))

	_, err = env.svc.GetByID(context.Background(), invoice.ID.String())
	require.ErrorIs(t, err, domain.ErrNotFound)

	var count int64
	require.NoError(t, env.db.Model(&domain.InvoiceLine{}).Where("invoice_id = ?", invoice.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestInvoiceLineUpdateAndDeleteRecompute(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.createDraft(t)

	line, err := env.svc.CreateLine(context.Background(), invoice.ID.String(), domain.CreateInvoiceLineRequest{
		Title:     "Licence",
		Quantity:  d("1"),
		UnitPrice: d("100"),
	})
	require.NoError(t, err)

	price := d("33.335")
	updated, err := env.svc.UpdateLine(context.Background(), invoice.ID.String(), line.ID.String(), domain.UpdateInvoiceLineRequest{
		UnitPrice: &price,
	})
	require.NoError(t, err)
	// 1 x 33.335 rounds half up at the net stage.
	require.True(t, updated.TotalNet.Equal(d("33.34")), "net=%s", updated.TotalNet)

	require.NoError(t, env.svc.DeleteLine(context.Background(), invoice.ID.String(), line.ID.String()))

	reloaded, err := env.svc.GetByID(context.Background(), invoice.ID.String())
	require.NoError(t, err)
	require.True(t, reloaded.TotalNet.IsZero())
}

func TestInvoiceLineScopedToParent(t *testing.T) {
	env := newTestEnv(t)
	first := env.createDraft(t)
	second := env.createDraft(t)

	line, err := env.svc.CreateLine(context.Background(), first.ID.String(), domain.CreateInvoiceLineRequest{
		Title:     "Support",
		Quantity:  d("1"),
		UnitPrice: d("10"),
	})
	require.NoError(t, err)

	_, err = env.svc.UpdateLine(context.Background(), second.ID.String(), line.ID.String(), domain.UpdateInvoiceLineRequest{})
	require.ErrorIs(t, err, domain.ErrLineNotFound)

	err = env.svc.DeleteLine(context.Background(), second.ID.String(), line.ID.String())
	require.ErrorIs(t, err, domain.ErrLineNotFound)
}

func TestInvoiceLineValidation(t *testing.T) {
	env := newTestEnv(t)
	invoice := env.createDraft(t)

	_, err := env.svc.CreateLine(context.Background(), invoice.ID.String(), domain.CreateInvoiceLineRequest{
		Title:     "  ",
		Quantity:  d("1"),
		UnitPrice: d("1"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidTitle)

	_, err = env.svc.CreateLine(context.Background(), invoice.ID.String(), domain.CreateInvoiceLineRequest{
		Title:     "Negative",
		Quantity:  d("-1"),
		UnitPrice: d("1"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	over := d("120")
	_, err = env.svc.CreateLine(context.Background(), invoice.ID.String(), domain.CreateInvoiceLineRequest{
		Title:     "Tax",
		Quantity:  d("1"),
		UnitPrice: d("1"),
		TaxRate:   &over,
	})
	require.ErrorIs(t, err, domain.ErrInvalidTaxRate)
}
