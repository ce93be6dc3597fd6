// AngelaMos | 2026
// dispatcher.go

package sms

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/angelamos/scribe/internal/config"
)

// Dispatcher sends codes in the background with bounded retry. Callers
// have already persisted the challenge, so a failed delivery is logged
// and dropped.
type Dispatcher struct {
	sender     Sender
	maxRetries uint64
	timeout    time.Duration
	logger     *slog.Logger
	newBackOff func() backoff.BackOff

	wg sync.WaitGroup
}

func NewDispatcher(
	sender Sender,
	cfg config.SMSConfig,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &Dispatcher{
		sender:     sender,
		maxRetries: uint64(retries),
		timeout:    cfg.Timeout,
		logger:     logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

// Dispatch returns immediately. The request context's values are kept
// but its cancellation is not, since the HTTP response is usually
// written before delivery finishes.
func (d *Dispatcher) Dispatch(ctx context.Context, mobile, code string) {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if err := d.Send(ctx, mobile, code); err != nil {
			d.logger.WarnContext(ctx, "sms delivery failed",
				"mobile", MaskMobile(mobile),
				"error", err,
			)
		}
	}()
}

// Send delivers synchronously, retrying transient failures.
func (d *Dispatcher) Send(ctx context.Context, mobile, code string) error {
	op := func() error {
		attemptCtx := ctx
		if d.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		err := d.sender.SendOTP(attemptCtx, mobile, code)
		if errors.Is(err, ErrRejected) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(d.newBackOff(), d.maxRetries),
		ctx,
	)

	return backoff.Retry(op, policy)
}

// Wait blocks until queued deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
