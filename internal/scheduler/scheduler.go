// Package scheduler runs the periodic maintenance jobs, currently the quote
// expiry sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/facture/internal/clock"
	quotedomain "github.com/smallbiznis/facture/internal/quote/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler dependencies are incomplete")

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	QuoteSvc quotedomain.Service
	Config   Config `optional:"true"`
}

type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	quoteSvc quotedomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.QuoteSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler"),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		quoteSvc: p.QuoteSvc,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	start := s.clock.Now()
	err := fn(ctx)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.log.Warn("job timed out",
				zap.String("job", name),
				zap.Duration("timeout", s.cfg.JobTimeout),
			)
			return nil
		}
		return fmt.Errorf("%s: %w", name, err)
	}

	s.log.Debug("job finished",
		zap.String("job", name),
		zap.Duration("duration", duration),
	)
	return nil
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, "expire_quotes", s.ExpireQuotesJob)
}

// ExpireQuotesJob transitions sent quotes past their validity date.
func (s *Scheduler) ExpireQuotesJob(ctx context.Context) error {
	count, err := s.quoteSvc.ExpireQuotes(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		s.log.Info("expired quotes", zap.Int64("count", count))
	}
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
