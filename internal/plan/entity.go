// AngelaMos | 2026
// entity.go

package plan

import (
	"errors"
	"time"
)

var (
	ErrQuotaExhausted   = errors.New("generation quota exhausted")
	ErrUserPlanNotFound = errors.New("user plan not found")
	ErrPlanNotFound     = errors.New("plan not found")
	ErrNoDefaultPlan    = errors.New("no default plan configured")
	ErrInvalidAmount    = errors.New("reservation amount must be positive")
)

type Plan struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Generation int       `db:"generation"`
	IsDefault  bool      `db:"is_default"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
}

// UserPlan binds a user to a plan and counts what has been spent. The
// plan's cap is joined in on read.
type UserPlan struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	PlanID     string    `db:"plan_id"`
	Used       int       `db:"used"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
	PlanName   string    `db:"plan_name"`
	Generation int       `db:"generation"`
}

func (u *UserPlan) Remaining() int {
	if u.Used >= u.Generation {
		return 0
	}
	return u.Generation - u.Used
}

func (u *UserPlan) CanSpend(amount int) bool {
	return u.Used+amount <= u.Generation
}

// Reservation is the outcome of a passed quota check. Nothing is
// persisted until it is committed.
type Reservation struct {
	UserPlanID string
	UserID     string
	Amount     int
}
