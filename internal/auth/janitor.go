// AngelaMos | 2026
// janitor.go

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/angelamos/scribe/internal/core"
)

type Sweeper interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Expired sessions stay this long so a late reuse is still recognized
// and revokes its family.
const sessionRetention = 24 * time.Hour

// Janitor deletes long-expired refresh tokens on a fixed interval until
// its context is canceled.
type Janitor struct {
	sweeper  Sweeper
	clock    core.Clock
	interval time.Duration
	logger   *slog.Logger
}

func NewJanitor(
	sweeper Sweeper,
	clock core.Clock,
	interval time.Duration,
	logger *slog.Logger,
) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		sweeper:  sweeper,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	deleted, err := j.sweeper.DeleteExpired(ctx, j.clock.Now().Add(-sessionRetention))
	if err != nil {
		if ctx.Err() == nil {
			j.logger.WarnContext(ctx, "refresh token sweep failed", "error", err)
		}
		return
	}
	if deleted > 0 {
		j.logger.InfoContext(ctx, "expired refresh tokens removed", "count", deleted)
	}
}
