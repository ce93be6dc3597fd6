// AngelaMos | 2026
// repository.go

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/angelamos/scribe/internal/core"
)

type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	UpsertLocale(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id, lang string) (*Category, error)
	ListCategories(ctx context.Context, lang string) ([]Category, error)

	UpsertPrompt(ctx context.Context, p *Prompt) error
	GetPrompt(ctx context.Context, categoryID, lang string) (*Prompt, error)

	CreateTone(ctx context.Context, t *Tone) error
	GetTone(ctx context.Context, id string) (*Tone, error)
	ListTones(ctx context.Context) ([]Tone, error)

	CreateInput(ctx context.Context, in *Input) error
	ListInputs(ctx context.Context, categoryID, lang string) ([]Input, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) CreateCategory(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (id, slug, max_tokens, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &c.CreatedAt, query,
		c.ID,
		c.Slug,
		c.MaxTokens,
		c.IsActive,
	)
	if core.IsDuplicateKeyError(err, "") {
		return fmt.Errorf("create category: %w", core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}

	return r.UpsertLocale(ctx, c)
}

func (r *repository) UpsertLocale(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO category_locales (category_id, lang, name, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (category_id, lang)
		DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description`

	if _, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Lang,
		c.Name,
		c.Description,
	); err != nil {
		return fmt.Errorf("upsert category locale: %w", err)
	}

	return nil
}

const categoryColumns = `
	c.id, c.slug, c.max_tokens, c.is_active, c.created_at,
	l.lang, l.name, l.description`

func (r *repository) GetCategory(
	ctx context.Context,
	id, lang string,
) (*Category, error) {
	query := `
		SELECT` + categoryColumns + `
		FROM categories c
		JOIN category_locales l ON l.category_id = c.id
		WHERE c.id = $1 AND l.lang = $2 AND c.is_active`

	var c Category
	err := r.db.GetContext(ctx, &c, query, id, lang)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get category: %w", ErrCategoryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}

	return &c, nil
}

func (r *repository) ListCategories(
	ctx context.Context,
	lang string,
) ([]Category, error) {
	query := `
		SELECT` + categoryColumns + `
		FROM categories c
		JOIN category_locales l ON l.category_id = c.id
		WHERE l.lang = $1 AND c.is_active
		ORDER BY l.name`

	var categories []Category
	if err := r.db.SelectContext(ctx, &categories, query, lang); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return categories, nil
}

func (r *repository) UpsertPrompt(ctx context.Context, p *Prompt) error {
	query := `
		INSERT INTO prompts (id, category_id, lang, system_template)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT prompts_category_lang_key
		DO UPDATE SET system_template = EXCLUDED.system_template
		RETURNING id`

	err := r.db.GetContext(ctx, &p.ID, query,
		p.ID,
		p.CategoryID,
		p.Lang,
		p.SystemTemplate,
	)
	if err != nil {
		return fmt.Errorf("upsert prompt: %w", err)
	}

	return nil
}

func (r *repository) GetPrompt(
	ctx context.Context,
	categoryID, lang string,
) (*Prompt, error) {
	query := `
		SELECT id, category_id, lang, system_template
		FROM prompts
		WHERE category_id = $1 AND lang = $2`

	var p Prompt
	err := r.db.GetContext(ctx, &p, query, categoryID, lang)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get prompt: %w", ErrPromptNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", err)
	}

	return &p, nil
}

func (r *repository) CreateTone(ctx context.Context, t *Tone) error {
	query := `INSERT INTO tones (id, name, is_active) VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.IsActive)
	if core.IsDuplicateKeyError(err, "") {
		return fmt.Errorf("create tone: %w", core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("create tone: %w", err)
	}

	return nil
}

func (r *repository) GetTone(ctx context.Context, id string) (*Tone, error) {
	query := `SELECT id, name, is_active FROM tones WHERE id = $1 AND is_active`

	var t Tone
	err := r.db.GetContext(ctx, &t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get tone: %w", ErrToneNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tone: %w", err)
	}

	return &t, nil
}

func (r *repository) ListTones(ctx context.Context) ([]Tone, error) {
	query := `SELECT id, name, is_active FROM tones WHERE is_active ORDER BY name`

	var tones []Tone
	if err := r.db.SelectContext(ctx, &tones, query); err != nil {
		return nil, fmt.Errorf("list tones: %w", err)
	}

	return tones, nil
}

func (r *repository) CreateInput(ctx context.Context, in *Input) error {
	query := `
		INSERT INTO inputs (id, category_id, lang, name, description_format, position)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		in.ID,
		in.CategoryID,
		in.Lang,
		in.Name,
		in.DescriptionFormat,
		in.Position,
	)
	if core.IsDuplicateKeyError(err, "inputs_category_lang_name_key") {
		return fmt.Errorf("create input: %w", core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("create input: %w", err)
	}

	return nil
}

// ListInputs returns the definitions in declared order.
func (r *repository) ListInputs(
	ctx context.Context,
	categoryID, lang string,
) ([]Input, error) {
	query := `
		SELECT id, category_id, lang, name, description_format, position
		FROM inputs
		WHERE category_id = $1 AND lang = $2
		ORDER BY position, name`

	var inputs []Input
	if err := r.db.SelectContext(ctx, &inputs, query, categoryID, lang); err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}

	return inputs, nil
}
