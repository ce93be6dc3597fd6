// AngelaMos | 2026
// repository.go

package generation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/angelamos/scribe/internal/core"
)

const idempotencyConstraint = "history_entries_idempotency_key"

type Repository interface {
	Create(ctx context.Context, e *HistoryEntry) error
	GetByID(ctx context.Context, id string) (*HistoryEntry, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*HistoryEntry, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]HistoryEntry, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Count(ctx context.Context) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const historyColumns = `
	id, user_id, category_id, tone_id, lang, variant, input_values,
	content, prompt_tokens, completion_tokens, idempotency_key, created_at`

func (r *repository) Create(ctx context.Context, e *HistoryEntry) error {
	query := `
		INSERT INTO history_entries (
			id, user_id, category_id, tone_id, lang, variant, input_values,
			content, prompt_tokens, completion_tokens, idempotency_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &e.CreatedAt, query,
		e.ID,
		e.UserID,
		e.CategoryID,
		e.ToneID,
		e.Lang,
		e.Variant,
		e.InputValues,
		e.Content,
		e.PromptTokens,
		e.CompletionTokens,
		e.IdempotencyKey,
	)
	if core.IsDuplicateKeyError(err, idempotencyConstraint) {
		return fmt.Errorf("create history entry: %w", core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("create history entry: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*HistoryEntry, error) {
	query := `SELECT` + historyColumns + ` FROM history_entries WHERE id = $1`

	var e HistoryEntry
	err := r.db.GetContext(ctx, &e, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get history entry: %w", ErrHistoryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}

	return &e, nil
}

func (r *repository) GetByIdempotencyKey(
	ctx context.Context,
	userID, key string,
) (*HistoryEntry, error) {
	query := `SELECT` + historyColumns + `
		FROM history_entries
		WHERE user_id = $1 AND idempotency_key = $2`

	var e HistoryEntry
	err := r.db.GetContext(ctx, &e, query, userID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get history entry by key: %w", ErrHistoryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry by key: %w", err)
	}

	return &e, nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]HistoryEntry, error) {
	query := `SELECT` + historyColumns + `
		FROM history_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	var entries []HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}

	return entries, nil
}

func (r *repository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM history_entries WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count history entries: %w", err)
	}
	return count, nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM history_entries`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count history entries: %w", err)
	}
	return count, nil
}
