// AngelaMos | 2026
// ledger_test.go

package plan

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userPlanColumns = []string{
	"id", "user_id", "plan_id", "used", "is_active",
	"created_at", "updated_at", "plan_name", "generation",
}

func newMockLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewLedger(NewRepository(sqlx.NewDb(db, "pgx"))), mock
}

func expectUserPlan(mock sqlmock.Sqlmock, used, generation int) {
	now := time.Now()
	mock.ExpectQuery(`SELECT up.id, .* FROM user_plans up JOIN plans p`).
		WithArgs("up1").
		WillReturnRows(sqlmock.NewRows(userPlanColumns).
			AddRow("up1", "u1", "p1", used, true, now, now, "Starter", generation))
}

func TestLedger_RejectsWhenCapReached(t *testing.T) {
	ledger, mock := newMockLedger(t)
	expectUserPlan(mock, 3, 3)

	res, err := ledger.CheckAndReserve(context.Background(), "up1", 1)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Nil(t, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_ReservesFullAmount(t *testing.T) {
	tests := []struct {
		name    string
		used    int
		cap     int
		amount  int
		wantErr error
	}{
		{name: "fits exactly", used: 3, cap: 5, amount: 2},
		{name: "one over", used: 4, cap: 5, amount: 2, wantErr: ErrQuotaExhausted},
		{name: "fresh plan", used: 0, cap: 5, amount: 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ledger, mock := newMockLedger(t)
			expectUserPlan(mock, tc.used, tc.cap)

			res, err := ledger.CheckAndReserve(context.Background(), "up1", tc.amount)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, &Reservation{UserPlanID: "up1", UserID: "u1", Amount: tc.amount}, res)
		})
	}
}

func TestLedger_RejectsNonPositiveAmount(t *testing.T) {
	ledger, mock := newMockLedger(t)

	_, err := ledger.CheckAndReserve(context.Background(), "up1", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_MissingUserPlan(t *testing.T) {
	ledger, mock := newMockLedger(t)
	mock.ExpectQuery(`FROM user_plans up`).
		WithArgs("up1").
		WillReturnRows(sqlmock.NewRows(userPlanColumns))

	_, err := ledger.CheckAndReserve(context.Background(), "up1", 1)
	assert.ErrorIs(t, err, ErrUserPlanNotFound)
}

func TestLedger_CommitIsConditional(t *testing.T) {
	ledger, mock := newMockLedger(t)
	mock.ExpectExec(`UPDATE user_plans up SET used = up.used \+ \$2,.* AND up.used \+ \$2 <= p.generation`).
		WithArgs("up1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ledger.Commit(context.Background(), &Reservation{UserPlanID: "up1", Amount: 2})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_CommitLosesRace(t *testing.T) {
	ledger, mock := newMockLedger(t)
	mock.ExpectExec(`UPDATE user_plans`).
		WithArgs("up1", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ledger.Commit(context.Background(), &Reservation{UserPlanID: "up1", Amount: 2})
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestUserPlan_Remaining(t *testing.T) {
	assert.Equal(t, 3, (&UserPlan{Used: 2, Generation: 5}).Remaining())
	assert.Equal(t, 0, (&UserPlan{Used: 6, Generation: 5}).Remaining())
}
