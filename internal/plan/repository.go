// AngelaMos | 2026
// repository.go

package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/angelamos/scribe/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Plan) error
	ClearDefault(ctx context.Context) error
	GetByID(ctx context.Context, id string) (*Plan, error)
	GetDefault(ctx context.Context) (*Plan, error)
	ListActive(ctx context.Context) ([]Plan, error)

	CreateUserPlan(ctx context.Context, up *UserPlan) error
	GetUserPlan(ctx context.Context, id string) (*UserPlan, error)
	GetActiveUserPlan(ctx context.Context, userID string) (*UserPlan, error)
	DeactivateUserPlans(ctx context.Context, userID string) error
	// IncrementUsed adds amount only if the result stays within the
	// plan's cap. It reports whether the row was updated.
	IncrementUsed(ctx context.Context, userPlanID string, amount int) (bool, error)
	SumUsed(ctx context.Context) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Plan) error {
	query := `
		INSERT INTO plans (id, name, generation, is_default, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &p.CreatedAt, query,
		p.ID,
		p.Name,
		p.Generation,
		p.IsDefault,
		p.IsActive,
	)
	if core.IsDuplicateKeyError(err, "") {
		return fmt.Errorf("create plan: %w", core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}

	return nil
}

func (r *repository) ClearDefault(ctx context.Context) error {
	query := `UPDATE plans SET is_default = FALSE WHERE is_default`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clear default plan: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Plan, error) {
	query := `
		SELECT id, name, generation, is_default, is_active, created_at
		FROM plans
		WHERE id = $1`

	var p Plan
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan: %w", ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	return &p, nil
}

func (r *repository) GetDefault(ctx context.Context) (*Plan, error) {
	query := `
		SELECT id, name, generation, is_default, is_active, created_at
		FROM plans
		WHERE is_default AND is_active`

	var p Plan
	err := r.db.GetContext(ctx, &p, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get default plan: %w", ErrNoDefaultPlan)
	}
	if err != nil {
		return nil, fmt.Errorf("get default plan: %w", err)
	}

	return &p, nil
}

func (r *repository) ListActive(ctx context.Context) ([]Plan, error) {
	query := `
		SELECT id, name, generation, is_default, is_active, created_at
		FROM plans
		WHERE is_active
		ORDER BY generation ASC, name ASC`

	plans := []Plan{}
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	return plans, nil
}

func (r *repository) CreateUserPlan(ctx context.Context, up *UserPlan) error {
	query := `
		INSERT INTO user_plans (id, user_id, plan_id, used, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING created_at, updated_at`

	row := struct {
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}{}

	err := r.db.GetContext(ctx, &row, query, up.ID, up.UserID, up.PlanID, up.Used)
	if core.IsDuplicateKeyError(err, "") {
		return fmt.Errorf("create user plan: %w", core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("create user plan: %w", err)
	}

	up.IsActive = true
	up.CreatedAt = row.CreatedAt
	up.UpdatedAt = row.UpdatedAt

	return nil
}

const userPlanSelect = `
		SELECT up.id, up.user_id, up.plan_id, up.used, up.is_active,
		       up.created_at, up.updated_at,
		       p.name AS plan_name, p.generation
		FROM user_plans up
		JOIN plans p ON p.id = up.plan_id`

func (r *repository) GetUserPlan(ctx context.Context, id string) (*UserPlan, error) {
	query := userPlanSelect + `
		WHERE up.id = $1 AND up.is_active`

	return r.getUserPlan(ctx, query, id)
}

func (r *repository) GetActiveUserPlan(
	ctx context.Context,
	userID string,
) (*UserPlan, error) {
	query := userPlanSelect + `
		WHERE up.user_id = $1 AND up.is_active`

	return r.getUserPlan(ctx, query, userID)
}

func (r *repository) getUserPlan(
	ctx context.Context,
	query, arg string,
) (*UserPlan, error) {
	var up UserPlan
	err := r.db.GetContext(ctx, &up, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user plan: %w", ErrUserPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user plan: %w", err)
	}

	return &up, nil
}

func (r *repository) DeactivateUserPlans(ctx context.Context, userID string) error {
	query := `
		UPDATE user_plans
		SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND is_active`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("deactivate user plans: %w", err)
	}
	return nil
}

func (r *repository) IncrementUsed(
	ctx context.Context,
	userPlanID string,
	amount int,
) (bool, error) {
	query := `
		UPDATE user_plans up
		SET used = up.used + $2, updated_at = NOW()
		FROM plans p
		WHERE up.id = $1
		  AND up.is_active
		  AND p.id = up.plan_id
		  AND up.used + $2 <= p.generation`

	result, err := r.db.ExecContext(ctx, query, userPlanID, amount)
	if err != nil {
		return false, fmt.Errorf("increment used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment used: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) SumUsed(ctx context.Context) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(used), 0) FROM user_plans`
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("sum used: %w", err)
	}
	return total, nil
}
