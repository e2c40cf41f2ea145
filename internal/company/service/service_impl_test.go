package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/facture/internal/clock"
	"github.com/smallbiznis/facture/internal/company/domain"
	"github.com/smallbiznis/facture/internal/company/repository"
	"github.com/smallbiznis/facture/internal/document"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	svc       domain.Service
	directory document.CustomerDirectory
	clock     *clock.FakeClock
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

	require.NoError(t, conn.AutoMigrate(&domain.Company{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))

	param := ServiceParam{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  repository.Provide(),
	}

	return &testEnv{
		svc:       New(param),
		directory: NewDirectory(param),
		clock:     fakeClock,
	}
}

func TestCompanyCreate(t *testing.T) {
	env := newTestEnv(t)

	company, err := env.svc.Create(context.Background(), domain.CreateCompanyRequest{
		Name:    "  Acme SARL ",
		Address: "1 rue de la Paix",
		City:    "Paris",
		Country: "FR",
	})
	require.NoError(t, err)
	require.Equal(t, "Acme SARL", company.Name)
	require.Equal(t, "acme-sarl", company.Slug)
	require.Equal(t, env.clock.Now(), company.CreatedAt)

	_, err = env.svc.Create(context.Background(), domain.CreateCompanyRequest{Name: "   "})
	require.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestCompanySlugConflict(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), domain.CreateCompanyRequest{Name: "Acme SARL"})
	require.NoError(t, err)

	_, err = env.svc.Create(context.Background(), domain.CreateCompanyRequest{Name: "Acme SARL"})
	require.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestCompanyUpdate(t *testing.T) {
	env := newTestEnv(t)

	company, err := env.svc.Create(context.Background(), domain.CreateCompanyRequest{
		Name: "Acme SARL",
		City: "Paris",
	})
	require.NoError(t, err)

	city := "Lyon"
	updated, err := env.svc.Update(context.Background(), company.ID.String(), domain.UpdateCompanyRequest{
		City: &city,
	})
	require.NoError(t, err)
	require.Equal(t, "Lyon", updated.City)
	require.Equal(t, "Acme SARL", updated.Name)

	empty := "  "
	_, err = env.svc.Update(context.Background(), company.ID.String(), domain.UpdateCompanyRequest{
		Name: &empty,
	})
	require.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestCompanyGetByID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.GetByID(context.Background(), "not-an-id")
	require.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = env.svc.GetByID(context.Background(), snowflake.ID(42).String())
	require.ErrorIs(t, err, domain.ErrNotFound)

	company, err := env.svc.Create(context.Background(), domain.CreateCompanyRequest{Name: "Acme SARL"})
	require.NoError(t, err)

	got, err := env.svc.GetByID(context.Background(), company.ID.String())
	require.NoError(t, err)
	require.Equal(t, company.ID, got.ID)
}

func TestDirectoryLookup(t *testing.T) {
	env := newTestEnv(t)

	company, err := env.svc.Create(context.Background(), domain.CreateCompanyRequest{
		Name:    "Acme SARL",
		Address: "1 rue de la Paix",
		ZipCode: "75002",
		City:    "Paris",
		Country: "FR",
	})
	require.NoError(t, err)

	details, err := env.directory.CustomerDetails(context.Background(), company.ID)
	require.NoError(t, err)
	require.NotNil(t, details)
	require.Equal(t, company.ID, *details.CustomerID)
	require.Equal(t, "Acme SARL", details.Name)
	require.Equal(t, "Paris", details.City)

	details, err = env.directory.CustomerDetails(context.Background(), snowflake.ID(42))
	require.NoError(t, err)
	require.Nil(t, details)
}
