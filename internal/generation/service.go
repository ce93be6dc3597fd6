// AngelaMos | 2026
// service.go

package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/angelamos/scribe/internal/catalog"
	"github.com/angelamos/scribe/internal/config"
	"github.com/angelamos/scribe/internal/plan"
	"github.com/angelamos/scribe/internal/provider"
)

const defaultTemperature = 0.7

var tracer = otel.Tracer("github.com/angelamos/scribe/internal/generation")

type UserPlans interface {
	GetActiveUserPlan(ctx context.Context, userID string) (*plan.UserPlan, error)
}

type Ledger interface {
	CheckAndReserve(ctx context.Context, userPlanID string, amount int) (*plan.Reservation, error)
}

type GenerateParams struct {
	UserID         string
	CategoryID     string
	ToneID         string
	Inputs         map[string]string
	Variant        int
	Temperature    *float64
	Lang           string
	IdempotencyKey string
}

type Outcome struct {
	Entry    *HistoryEntry
	Replayed bool
}

// Service runs the metered generation pipeline and serves history reads.
type Service struct {
	history   Repository
	userPlans UserPlans
	ledger    Ledger
	catalog   catalog.Reader
	provider  provider.Provider
	recorder  Recorder
	cfg       config.GenerationConfig
	logger    *slog.Logger
}

func NewService(
	history Repository,
	userPlans UserPlans,
	ledger Ledger,
	reader catalog.Reader,
	prov provider.Provider,
	recorder Recorder,
	cfg config.GenerationConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		history:   history,
		userPlans: userPlans,
		ledger:    ledger,
		catalog:   reader,
		provider:  prov,
		recorder:  recorder,
		cfg:       cfg,
		logger:    logger,
	}
}

// Generate checks quota, assembles the prompt, calls the provider and
// records spend plus history together. Nothing is written when the
// provider fails.
func (s *Service) Generate(ctx context.Context, p GenerateParams) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "generation.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("generation.category_id", p.CategoryID),
		attribute.Int("generation.variant", p.Variant),
		attribute.String("generation.lang", p.Lang),
	)

	out, err := s.generate(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, err
	}

	span.SetAttributes(attribute.Bool("generation.replayed", out.Replayed))
	return out, nil
}

func (s *Service) generate(ctx context.Context, p GenerateParams) (*Outcome, error) {
	if p.Variant < 1 || p.Variant > s.cfg.MaxVariants {
		return nil, ErrInvalidVariant
	}

	if p.IdempotencyKey != "" {
		existing, err := s.history.GetByIdempotencyKey(ctx, p.UserID, p.IdempotencyKey)
		if err == nil {
			return &Outcome{Entry: existing, Replayed: true}, nil
		}
		if !errors.Is(err, ErrHistoryNotFound) {
			return nil, err
		}
	}

	up, err := s.userPlans.GetActiveUserPlan(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	reservation, err := s.ledger.CheckAndReserve(ctx, up.ID, p.Variant)
	if err != nil {
		return nil, err
	}

	assembled, maxTokens, err := s.assemble(ctx, p)
	if err != nil {
		return nil, err
	}

	temperature := defaultTemperature
	if p.Temperature != nil {
		temperature = *p.Temperature
	}

	result, err := s.complete(ctx, provider.Request{
		Messages:    assembled.Messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, err
	}

	entry := &HistoryEntry{
		ID:               uuid.New().String(),
		UserID:           p.UserID,
		CategoryID:       p.CategoryID,
		ToneID:           p.ToneID,
		Lang:             p.Lang,
		Variant:          p.Variant,
		InputValues:      assembled.Values,
		Content:          result.Text,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	}
	if p.IdempotencyKey != "" {
		key := p.IdempotencyKey
		entry.IdempotencyKey = &key
	}

	recorded, err := s.recorder.Record(ctx, reservation, entry)
	if errors.Is(err, ErrReplayed) {
		s.logger.InfoContext(ctx, "generation discarded for replayed idempotency key",
			"user_id", p.UserID,
			"history_id", recorded.ID,
		)
		return &Outcome{Entry: recorded, Replayed: true}, nil
	}
	if err != nil {
		if errors.Is(err, plan.ErrQuotaExhausted) {
			s.logger.WarnContext(ctx, "quota spent concurrently, discarding generation",
				"user_id", p.UserID,
				"user_plan_id", up.ID,
			)
		}
		return nil, err
	}

	return &Outcome{Entry: recorded}, nil
}

func (s *Service) assemble(ctx context.Context, p GenerateParams) (*Assembled, int, error) {
	category, err := s.catalog.Category(ctx, p.CategoryID, p.Lang)
	if err != nil {
		return nil, 0, err
	}

	prompt, err := s.catalog.Prompt(ctx, p.CategoryID, p.Lang)
	if err != nil {
		return nil, 0, err
	}

	inputs, err := s.catalog.Inputs(ctx, p.CategoryID, p.Lang)
	if err != nil {
		return nil, 0, err
	}

	tone, err := s.catalog.Tone(ctx, p.ToneID)
	if err != nil {
		return nil, 0, err
	}

	assembled, err := Assemble(AssembleParams{
		Category: category,
		Prompt:   prompt,
		Tone:     tone,
		Inputs:   inputs,
		Values:   p.Inputs,
		Lang:     p.Lang,
		Variants: p.Variant,
	})
	if err != nil {
		return nil, 0, err
	}

	return assembled, category.MaxTokensOr(s.cfg.DefaultMaxTokens), nil
}

func (s *Service) complete(ctx context.Context, req provider.Request) (*provider.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	result, err := s.provider.Complete(callCtx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "generation provider failed",
			"provider", s.provider.Name(),
			"duration", time.Since(start),
			"error", err,
		)
		if !errors.Is(err, provider.ErrProviderFailure) {
			err = fmt.Errorf("%w: %w", provider.ErrProviderFailure, err)
		}
		return nil, err
	}

	s.logger.DebugContext(ctx, "generation provider completed",
		"provider", s.provider.Name(),
		"duration", time.Since(start),
		"completion_tokens", result.CompletionTokens,
	)
	return result, nil
}

// Get returns the caller's own entry. Entries of other users look
// missing.
func (s *Service) Get(ctx context.Context, userID, id string) (*HistoryEntry, error) {
	e, err := s.history.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, ErrHistoryNotFound
	}
	return e, nil
}

func (s *Service) List(
	ctx context.Context,
	userID string,
	page, pageSize int,
) ([]HistoryEntry, int, error) {
	offset := (page - 1) * pageSize

	entries, err := s.history.ListByUser(ctx, userID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.history.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.history.Count(ctx)
}
