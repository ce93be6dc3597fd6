// AngelaMos | 2026
// connect.go

package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	pingTimeout       = 5 * time.Second
	connectRetryLimit = 30 * time.Second
)

// connectWithRetry keeps calling dial until it succeeds, ctx ends, or
// connectRetryLimit passes. Containers routinely start before their
// database does.
func connectWithRetry(ctx context.Context, name string, dial func(ctx context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = connectRetryLimit

	err := backoff.RetryNotify(
		func() error { return dial(ctx) },
		backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			slog.WarnContext(ctx, "dependency not ready, retrying",
				"dependency", name,
				"error", err,
				"wait", wait,
			)
		},
	)
	if err != nil {
		return fmt.Errorf("connect %s: %w", name, err)
	}
	return nil
}

func pingWithin(ctx context.Context, ping func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return ping(ctx)
}
