// AngelaMos | 2026
// ledger.go

package plan

import (
	"context"
	"fmt"
)

// Ledger meters generation spend. A check never writes; the commit is a
// single conditional increment so concurrent requests cannot push used
// past the cap. Build it over a transaction to commit alongside other
// writes.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

func (l *Ledger) CheckAndReserve(
	ctx context.Context,
	userPlanID string,
	amount int,
) (*Reservation, error) {
	if amount < 1 {
		return nil, ErrInvalidAmount
	}

	up, err := l.repo.GetUserPlan(ctx, userPlanID)
	if err != nil {
		return nil, err
	}

	if !up.CanSpend(amount) {
		return nil, ErrQuotaExhausted
	}

	return &Reservation{
		UserPlanID: up.ID,
		UserID:     up.UserID,
		Amount:     amount,
	}, nil
}

// Commit persists the reservation. Losing the race to a concurrent
// request that spent the remaining allowance yields ErrQuotaExhausted.
func (l *Ledger) Commit(ctx context.Context, r *Reservation) error {
	ok, err := l.repo.IncrementUsed(ctx, r.UserPlanID, r.Amount)
	if err != nil {
		return fmt.Errorf("commit reservation: %w", err)
	}
	if !ok {
		return ErrQuotaExhausted
	}
	return nil
}
