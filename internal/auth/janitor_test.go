// AngelaMos | 2026
// janitor_test.go

package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/angelamos/scribe/internal/core"
)

type countingSweeper struct {
	calls  atomic.Int32
	err    error
	before atomic.Value
}

func (c *countingSweeper) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	c.calls.Add(1)
	c.before.Store(before)
	return 3, c.err
}

func TestJanitor_SweepsUntilCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	sweeper := &countingSweeper{}
	j := NewJanitor(sweeper, core.SystemClock{}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestJanitor_SurvivesSweepErrors(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	j := NewJanitor(sweeper, core.SystemClock{}, time.Hour, nil)

	j.sweep(context.Background())
	j.sweep(context.Background())

	assert.Equal(t, int32(2), sweeper.calls.Load())
}

func TestJanitor_KeepsRecentlyExpiredSessions(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	sweeper := &countingSweeper{}
	j := NewJanitor(sweeper, core.NewManualClock(now), time.Hour, nil)

	j.sweep(context.Background())

	assert.Equal(t, now.Add(-24*time.Hour), sweeper.before.Load())
}

func TestRefreshToken_State(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	revokedAt := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token RefreshToken
		want  TokenState
	}{
		{"valid", RefreshToken{ExpiresAt: now.Add(time.Hour)}, TokenValid},
		{"expired", RefreshToken{ExpiresAt: now}, TokenExpired},
		{"revoked", RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}, TokenRevoked},
		{"reuse wins", RefreshToken{ExpiresAt: now.Add(-time.Hour), IsUsed: true, RevokedAt: &revokedAt}, TokenReused},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.token.State(now))
		})
	}
}
