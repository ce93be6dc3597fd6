// AngelaMos | 2026
// recorder.go

package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/angelamos/scribe/internal/core"
	"github.com/angelamos/scribe/internal/plan"
)

// ErrReplayed is returned by a Recorder when the idempotency key was
// already recorded. The existing entry is returned alongside it.
var ErrReplayed = errors.New("idempotency key already recorded")

// Recorder commits the quota spend and appends the history entry as one
// unit.
type Recorder interface {
	Record(ctx context.Context, r *plan.Reservation, e *HistoryEntry) (*HistoryEntry, error)
}

type TxRecorder struct {
	db *sqlx.DB
}

func NewTxRecorder(db *sqlx.DB) *TxRecorder {
	return &TxRecorder{db: db}
}

// Record inserts the entry before spending so a replayed key never
// touches the ledger. Either both writes land or neither does.
func (t *TxRecorder) Record(
	ctx context.Context,
	r *plan.Reservation,
	e *HistoryEntry,
) (*HistoryEntry, error) {
	err := core.InTx(ctx, t.db, func(tx *sqlx.Tx) error {
		if err := NewRepository(tx).Create(ctx, e); err != nil {
			return err
		}
		return plan.NewLedger(plan.NewRepository(tx)).Commit(ctx, r)
	})

	if errors.Is(err, core.ErrDuplicateKey) && e.IdempotencyKey != nil {
		existing, getErr := NewRepository(t.db).GetByIdempotencyKey(ctx, e.UserID, *e.IdempotencyKey)
		if getErr != nil {
			return nil, fmt.Errorf("load replayed entry: %w", getErr)
		}
		return existing, ErrReplayed
	}
	if err != nil {
		return nil, err
	}

	return e, nil
}
