// AngelaMos | 2026
// repository.go

package challenge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/angelamos/scribe/internal/core"
)

// Store persists at most one challenge per user.
type Store interface {
	// CreateIfAbsent reports false when the user already holds a
	// challenge. It never overwrites.
	CreateIfAbsent(ctx context.Context, c *Challenge) (bool, error)
	GetByUser(ctx context.Context, userID string) (*Challenge, error)
	// Replace overwrites code, purpose and timestamps in place, but only
	// if the stored issued_at still equals prevIssuedAt.
	Replace(ctx context.Context, c *Challenge, prevIssuedAt time.Time) (bool, error)
	// RecordFailure bumps the attempt counter and deactivates the
	// challenge once maxAttempts is reached.
	RecordFailure(ctx context.Context, id string, maxAttempts int) (int, error)
	// Deactivate consumes an active challenge. Only one caller wins; the
	// rest get ErrInvalidOrExpired.
	Deactivate(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Store {
	return &repository{db: db}
}

func (r *repository) CreateIfAbsent(
	ctx context.Context,
	c *Challenge,
) (bool, error) {
	query := `
		INSERT INTO challenges (
			id, user_id, purpose, code_hash, is_active, attempts,
			issued_at, expires_at
		) VALUES ($1, $2, $3, $4, TRUE, 0, $5, $6)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING created_at, updated_at`

	row := struct {
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}{}

	err := r.db.GetContext(ctx, &row, query,
		c.ID,
		c.UserID,
		c.Purpose,
		c.CodeHash,
		c.IssuedAt,
		c.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create challenge: %w", err)
	}

	c.IsActive = true
	c.Attempts = 0
	c.CreatedAt = row.CreatedAt
	c.UpdatedAt = row.UpdatedAt

	return true, nil
}

func (r *repository) GetByUser(
	ctx context.Context,
	userID string,
) (*Challenge, error) {
	query := `
		SELECT id, user_id, purpose, code_hash, is_active, attempts,
		       issued_at, expires_at, created_at, updated_at
		FROM challenges
		WHERE user_id = $1`

	var c Challenge
	err := r.db.GetContext(ctx, &c, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get challenge: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}

	return &c, nil
}

func (r *repository) Replace(
	ctx context.Context,
	c *Challenge,
	prevIssuedAt time.Time,
) (bool, error) {
	query := `
		UPDATE challenges
		SET purpose = $2, code_hash = $3, is_active = TRUE, attempts = 0,
		    issued_at = $4, expires_at = $5, updated_at = NOW()
		WHERE id = $1 AND issued_at = $6`

	result, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Purpose,
		c.CodeHash,
		c.IssuedAt,
		c.ExpiresAt,
		prevIssuedAt,
	)
	if err != nil {
		return false, fmt.Errorf("replace challenge: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("replace challenge: %w", err)
	}

	if rows == 0 {
		return false, nil
	}

	c.IsActive = true
	c.Attempts = 0

	return true, nil
}

func (r *repository) RecordFailure(
	ctx context.Context,
	id string,
	maxAttempts int,
) (int, error) {
	query := `
		UPDATE challenges
		SET attempts = attempts + 1,
		    is_active = attempts + 1 < $2,
		    updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING attempts`

	var attempts int
	err := r.db.GetContext(ctx, &attempts, query, id, maxAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("record challenge failure: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("record challenge failure: %w", err)
	}

	return attempts, nil
}

func (r *repository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE challenges
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate challenge: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate challenge: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("deactivate challenge: %w", ErrInvalidOrExpired)
	}

	return nil
}
