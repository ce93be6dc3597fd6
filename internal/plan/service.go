// AngelaMos | 2026
// service.go

package plan

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/angelamos/scribe/internal/core"
)

type Service struct {
	db   *sqlx.DB
	repo Repository
}

func NewService(db *sqlx.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) Usage(ctx context.Context, userID string) (*UserPlan, error) {
	return s.repo.GetActiveUserPlan(ctx, userID)
}

func (s *Service) TotalUsed(ctx context.Context) (int, error) {
	return s.repo.SumUsed(ctx)
}

func (s *Service) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	p := &Plan{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Generation: req.Generation,
		IsDefault:  req.IsDefault,
		IsActive:   true,
	}

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)
		if p.IsDefault {
			if err := repo.ClearDefault(ctx); err != nil {
				return err
			}
		}
		return repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// AssignPlan moves a user onto planID with a fresh usage counter.
func (s *Service) AssignPlan(ctx context.Context, userID, planID string) (*UserPlan, error) {
	var assigned *UserPlan

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		repo := NewRepository(tx)

		p, err := repo.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return fmt.Errorf("assign plan: %w", ErrPlanNotFound)
		}

		if err := repo.DeactivateUserPlans(ctx, userID); err != nil {
			return err
		}

		up, err := BindUser(ctx, repo, userID, p)
		if err != nil {
			return err
		}
		assigned = up
		return nil
	})
	if err != nil {
		return nil, err
	}

	return assigned, nil
}

// BindUser creates an active user plan. Sign-up calls it with the default
// plan inside the same transaction that creates the user.
func BindUser(ctx context.Context, repo Repository, userID string, p *Plan) (*UserPlan, error) {
	up := &UserPlan{
		ID:         uuid.New().String(),
		UserID:     userID,
		PlanID:     p.ID,
		PlanName:   p.Name,
		Generation: p.Generation,
	}

	if err := repo.CreateUserPlan(ctx, up); err != nil {
		return nil, err
	}

	return up, nil
}
