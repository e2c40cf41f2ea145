package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/facture/internal/config"
)

const (
	keyInvoiceNumbering = "invoice:numbering:lock:%s:%d"

	numberingLockTTL      = 5 * time.Second
	numberingLockAttempts = 10
	numberingLockBackoff  = 50 * time.Millisecond
)

// NumberingGuard serializes invoice number generation per issuer and year
// across instances. Without Redis it is disabled and number generation
// falls back on the unique index plus retry.
type NumberingGuard struct {
	enabled bool
	locker  *Locker
}

func NewNumberingGuard(cfg config.Config) *NumberingGuard {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &NumberingGuard{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	return &NumberingGuard{
		enabled: true,
		locker:  NewLocker(client),
	}
}

func (g *NumberingGuard) Enabled() bool {
	return g != nil && g.enabled
}

// Acquire blocks briefly until the issuer/year lock is held, then returns a
// release function. When the lock cannot be obtained in time the caller
// proceeds without it; the database constraint still catches collisions.
func (g *NumberingGuard) Acquire(ctx context.Context, issuerID string, year int) (func(), error) {
	if !g.Enabled() {
		return func() {}, nil
	}

	key := fmt.Sprintf(keyInvoiceNumbering, strings.TrimSpace(issuerID), year)
	for attempt := 0; attempt < numberingLockAttempts; attempt++ {
		token, ok, err := g.locker.TryLock(ctx, key, numberingLockTTL)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = g.locker.Release(releaseCtx, key, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(numberingLockBackoff):
		}
	}
	return func() {}, nil
}
