// AngelaMos | 2026
// recorder_test.go

package generation

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/scribe/internal/plan"
)

func newMockRecorder(t *testing.T) (*TxRecorder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTxRecorder(sqlx.NewDb(db, "pgx")), mock
}

func sampleEntry(key *string) *HistoryEntry {
	return &HistoryEntry{
		ID:             "h-1",
		UserID:         "u-1",
		CategoryID:     "cat-1",
		ToneID:         "tone-1",
		Lang:           "en",
		Variant:        2,
		InputValues:    InputValues{{InputID: "in-1", Name: "product", Value: "tea"}},
		Content:        "Drink tea.",
		IdempotencyKey: key,
	}
}

var reservation = &plan.Reservation{UserPlanID: "up-1", UserID: "u-1", Amount: 2}

func TestTxRecorder_CommitsSpendAndHistoryTogether(t *testing.T) {
	rec, mock := newMockRecorder(t)
	created := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO history_entries`).
		WithArgs("h-1", "u-1", "cat-1", "tone-1", "en", 2, sqlmock.AnyArg(), "Drink tea.", 0, 0, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectExec(`UPDATE user_plans up SET used = up.used \+ \$2,.*`).
		WithArgs("up-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e, err := rec.Record(context.Background(), reservation, sampleEntry(nil))
	require.NoError(t, err)
	assert.Equal(t, created, e.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRecorder_LostQuotaRaceRollsBack(t *testing.T) {
	rec, mock := newMockRecorder(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO history_entries`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`UPDATE user_plans up`).
		WithArgs("up-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := rec.Record(context.Background(), reservation, sampleEntry(nil))
	assert.ErrorIs(t, err, plan.ErrQuotaExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRecorder_ReplayedKeyReturnsExisting(t *testing.T) {
	rec, mock := newMockRecorder(t)
	key := "req-42"

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO history_entries`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: idempotencyConstraint})
	mock.ExpectRollback()

	columns := []string{
		"id", "user_id", "category_id", "tone_id", "lang", "variant", "input_values",
		"content", "prompt_tokens", "completion_tokens", "idempotency_key", "created_at",
	}
	mock.ExpectQuery(`FROM history_entries WHERE user_id = \$1 AND idempotency_key = \$2`).
		WithArgs("u-1", key).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"h-0", "u-1", "cat-1", "tone-1", "en", 2,
			[]byte(`[{"input_id":"in-1","name":"product","value":"tea"}]`),
			"Earlier text.", 10, 5, key, time.Now(),
		))

	e, err := rec.Record(context.Background(), reservation, sampleEntry(&key))
	require.ErrorIs(t, err, ErrReplayed)
	assert.Equal(t, "h-0", e.ID)
	assert.Equal(t, "Earlier text.", e.Content)
	require.Len(t, e.InputValues, 1)
	assert.Equal(t, "tea", e.InputValues[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}
