// AngelaMos | 2026
// service.go

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/angelamos/scribe/internal/core"
)

type Service struct {
	db    *sqlx.DB
	repo  Repository
	cache *Cache
}

func NewService(db *sqlx.DB, repo Repository, cache *Cache) *Service {
	return &Service{
		db:    db,
		repo:  repo,
		cache: cache,
	}
}

func (s *Service) ListCategories(ctx context.Context, lang string) ([]Category, error) {
	return s.cache.Categories(ctx, lang)
}

// GetCategory returns the localized category with its inputs in declared
// order. A category with no inputs for lang yields an empty list.
func (s *Service) GetCategory(ctx context.Context, id, lang string) (*CategoryDetail, error) {
	c, err := s.cache.Category(ctx, id, lang)
	if err != nil {
		return nil, err
	}

	inputs, err := s.cache.Inputs(ctx, id, lang)
	if err != nil && !errors.Is(err, ErrInputsNotFound) {
		return nil, err
	}
	if inputs == nil {
		inputs = []Input{}
	}

	return &CategoryDetail{Category: *c, Inputs: inputs}, nil
}

func (s *Service) ListTones(ctx context.Context) ([]Tone, error) {
	return s.cache.Tones(ctx)
}

func (s *Service) CreateCategory(
	ctx context.Context,
	req CreateCategoryRequest,
) (*Category, error) {
	c := &Category{
		ID:          uuid.New().String(),
		Slug:        req.Slug,
		MaxTokens:   req.MaxTokens,
		IsActive:    true,
		Lang:        req.Lang,
		Name:        req.Name,
		Description: req.Description,
	}

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return NewRepository(tx).CreateCategory(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateCategory(ctx, c.ID, c.Lang)

	return c, nil
}

func (s *Service) UpsertLocale(
	ctx context.Context,
	categoryID string,
	req LocaleRequest,
) error {
	err := s.repo.UpsertLocale(ctx, &Category{
		ID:          categoryID,
		Lang:        req.Lang,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return mapMissingCategory(err)
	}

	s.cache.InvalidateCategory(ctx, categoryID, req.Lang)
	return nil
}

func (s *Service) UpsertPrompt(
	ctx context.Context,
	categoryID string,
	req PromptRequest,
) (*Prompt, error) {
	p := &Prompt{
		ID:             uuid.New().String(),
		CategoryID:     categoryID,
		Lang:           req.Lang,
		SystemTemplate: req.SystemTemplate,
	}

	if err := s.repo.UpsertPrompt(ctx, p); err != nil {
		return nil, mapMissingCategory(err)
	}

	s.cache.InvalidateCategory(ctx, categoryID, req.Lang)
	return p, nil
}

func (s *Service) AddInput(
	ctx context.Context,
	categoryID string,
	req InputRequest,
) (*Input, error) {
	in := &Input{
		ID:                uuid.New().String(),
		CategoryID:        categoryID,
		Lang:              req.Lang,
		Name:              req.Name,
		DescriptionFormat: req.DescriptionFormat,
		Position:          req.Position,
	}

	if err := s.repo.CreateInput(ctx, in); err != nil {
		return nil, mapMissingCategory(err)
	}

	s.cache.InvalidateCategory(ctx, categoryID, req.Lang)
	return in, nil
}

func (s *Service) CreateTone(ctx context.Context, req ToneRequest) (*Tone, error) {
	t := &Tone{
		ID:       uuid.New().String(),
		Name:     req.Name,
		IsActive: true,
	}

	if err := s.repo.CreateTone(ctx, t); err != nil {
		return nil, err
	}

	s.cache.InvalidateTones(ctx)
	return t, nil
}

func mapMissingCategory(err error) error {
	if core.IsForeignKeyError(err) {
		return fmt.Errorf("%w: %w", ErrCategoryNotFound, err)
	}
	return err
}
