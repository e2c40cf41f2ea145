package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/facture/internal/clock"
	"github.com/smallbiznis/facture/internal/document"
	"github.com/smallbiznis/facture/internal/quote/domain"
	quoteservice "github.com/smallbiznis/facture/internal/quote/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type emptyDirectory struct{}

func (emptyDirectory) CustomerDetails(context.Context, snowflake.ID) (*document.CustomerDetails, error) {
	return nil, nil
}

type testEnv struct {
	sched    *Scheduler
	quoteSvc domain.Service
	clock    *clock.FakeClock
	genID    *snowflake.Node
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

	require.NoError(t, conn.AutoMigrate(&domain.Quote{}, &domain.QuoteLine{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))

	quoteSvc := quoteservice.New(quoteservice.ServiceParam{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fakeClock,
		Directory: emptyDirectory{},
	})

	sched, err := New(Params{
		Log:      zap.NewNop(),
		Clock:    fakeClock,
		QuoteSvc: quoteSvc,
	})
	require.NoError(t, err)

	return &testEnv{sched: sched, quoteSvc: quoteSvc, clock: fakeClock, genID: node}
}

func (e *testEnv) createQuote(t *testing.T, number string, status domain.QuoteStatus, validUntil *time.Time) domain.Quote {
	t.Helper()
	name := "Acme SARL"
	quote, err := e.quoteSvc.Create(context.Background(), domain.CreateQuoteRequest{
		CompanyID:    e.genID.Generate().String(),
		CustomerName: &name,
		Number:       number,
		ValidUntil:   validUntil,
	})
	require.NoError(t, err)

	if status != domain.QuoteStatusDraft {
		quote, err = e.quoteSvc.Update(context.Background(), quote.ID.String(), domain.UpdateQuoteRequest{
			Status: &status,
		})
		require.NoError(t, err)
	}
	return quote
}

func TestRunOnceExpiresPastDueQuotes(t *testing.T) {
	env := newTestEnv(t)

	pastDue := env.clock.Now().Add(24 * time.Hour)
	sent := env.createQuote(t, "Q-1", domain.QuoteStatusSent, &pastDue)
	draft := env.createQuote(t, "Q-2", domain.QuoteStatusDraft, &pastDue)

	env.clock.Advance(48 * time.Hour)
	require.NoError(t, env.sched.RunOnce(context.Background()))

	got, err := env.quoteSvc.GetByID(context.Background(), sent.ID.String())
	require.NoError(t, err)
	require.Equal(t, domain.QuoteStatusExpired, got.Status)

	got, err = env.quoteSvc.GetByID(context.Background(), draft.ID.String())
	require.NoError(t, err)
	require.Equal(t, domain.QuoteStatusDraft, got.Status)
}

func TestRunOnceLeavesCurrentQuotesAlone(t *testing.T) {
	env := newTestEnv(t)

	future := env.clock.Now().Add(30 * 24 * time.Hour)
	sent := env.createQuote(t, "Q-1", domain.QuoteStatusSent, &future)

	require.NoError(t, env.sched.RunOnce(context.Background()))

	got, err := env.quoteSvc.GetByID(context.Background(), sent.ID.String())
	require.NoError(t, err)
	require.Equal(t, domain.QuoteStatusSent, got.Status)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, time.Minute, cfg.RunInterval)
	require.Equal(t, 30*time.Second, cfg.JobTimeout)

	cfg = Config{RunInterval: 5 * time.Second, JobTimeout: time.Second}.withDefaults()
	require.Equal(t, 5*time.Second, cfg.RunInterval)
	require.Equal(t, time.Second, cfg.JobTimeout)
}
