// AngelaMos | 2026
// manager.go

package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/angelamos/scribe/internal/config"
	"github.com/angelamos/scribe/internal/core"
)

// Dispatcher delivers a code out of band. Delivery is best effort and
// must not block issuance.
type Dispatcher interface {
	Dispatch(ctx context.Context, destination, code string)
}

type IssueParams struct {
	UserID      string
	Purpose     string
	Destination string
}

type Manager struct {
	store      Store
	clock      core.Clock
	cfg        config.OTPConfig
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewManager(
	store Store,
	clock core.Clock,
	cfg config.OTPConfig,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		clock:      clock,
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Issue creates the user's challenge, or replaces an existing one whose
// cooldown has passed. Losing a concurrent create to another request
// yields ErrAlreadyIssued.
func (m *Manager) Issue(ctx context.Context, p IssueParams) (*Issued, error) {
	existing, err := m.store.GetByUser(ctx, p.UserID)
	switch {
	case err == nil:
		return m.reissue(ctx, existing, p)
	case !errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("issue challenge: %w", err)
	}

	code, err := core.GenerateNumericCode(m.cfg.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("issue challenge: %w", err)
	}

	now := m.now()
	c := &Challenge{
		ID:        uuid.New().String(),
		UserID:    p.UserID,
		Purpose:   p.Purpose,
		CodeHash:  core.HashToken(code),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.cfg.Validity),
	}

	created, err := m.store.CreateIfAbsent(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("issue challenge: %w", err)
	}
	if !created {
		return nil, ErrAlreadyIssued
	}

	m.deliver(ctx, p.Destination, code)

	return &Issued{Challenge: c, Code: code, First: true}, nil
}

// Reissue replaces the code and expiry of an existing challenge in place.
func (m *Manager) Reissue(
	ctx context.Context,
	existing *Challenge,
	destination string,
) (*Issued, error) {
	return m.reissue(ctx, existing, IssueParams{
		UserID:      existing.UserID,
		Purpose:     existing.Purpose,
		Destination: destination,
	})
}

func (m *Manager) reissue(
	ctx context.Context,
	existing *Challenge,
	p IssueParams,
) (*Issued, error) {
	if m.InCooldown(existing) {
		return nil, ErrAlreadyIssued
	}

	code, err := core.GenerateNumericCode(m.cfg.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("reissue challenge: %w", err)
	}

	purpose := p.Purpose
	if purpose == "" {
		purpose = existing.Purpose
	}

	now := m.now()
	next := *existing
	next.Purpose = purpose
	next.CodeHash = core.HashToken(code)
	next.IssuedAt = now
	next.ExpiresAt = now.Add(m.cfg.Validity)

	replaced, err := m.store.Replace(ctx, &next, existing.IssuedAt)
	if err != nil {
		return nil, fmt.Errorf("reissue challenge: %w", err)
	}
	if !replaced {
		return nil, ErrAlreadyIssued
	}

	m.deliver(ctx, p.Destination, code)

	return &Issued{Challenge: &next, Code: code}, nil
}

// InCooldown is true while the challenge was issued less than the
// cooldown ago and is either still active or locked by failed attempts.
// Only a code consumed by a successful verification releases it early.
func (m *Manager) InCooldown(c *Challenge) bool {
	if c == nil {
		return false
	}
	if !c.IsActive && !m.locked(c) {
		return false
	}
	return m.now().Sub(c.IssuedAt) < m.cfg.Cooldown
}

func (m *Manager) locked(c *Challenge) bool {
	return m.cfg.MaxAttempts > 0 && c.Attempts >= m.cfg.MaxAttempts
}

// Validate returns the matching challenge. It does not consume it; the
// caller deactivates it once the user has been transitioned.
func (m *Manager) Validate(
	ctx context.Context,
	userID, code string,
) (*Challenge, error) {
	c, err := m.store.GetByUser(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, ErrInvalidOrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("validate challenge: %w", err)
	}

	if !c.IsUsable(m.now()) {
		return nil, ErrInvalidOrExpired
	}

	if len(code) != m.cfg.CodeLength || !core.CompareTokenHash(code, c.CodeHash) {
		attempts, err := m.store.RecordFailure(ctx, c.ID, m.cfg.MaxAttempts)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("validate challenge: %w", err)
		}
		if attempts >= m.cfg.MaxAttempts {
			m.logger.WarnContext(ctx, "challenge locked after failed attempts",
				"user_id", userID,
				"attempts", attempts,
			)
		}
		return nil, ErrInvalidOrExpired
	}

	return c, nil
}

func (m *Manager) Deactivate(ctx context.Context, c *Challenge) error {
	if err := m.store.Deactivate(ctx, c.ID); err != nil {
		return err
	}
	c.IsActive = false
	return nil
}

func (m *Manager) deliver(ctx context.Context, destination, code string) {
	if m.dispatcher == nil || destination == "" {
		return
	}
	m.dispatcher.Dispatch(ctx, destination, code)
}

// now is truncated to the precision Postgres stores so the optimistic
// issued_at guard in Replace compares equal values.
func (m *Manager) now() time.Time {
	return m.clock.Now().Truncate(time.Microsecond)
}
