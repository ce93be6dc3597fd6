// AngelaMos | 2026
// repository_test.go

package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/scribe/internal/core"
)

func newMockRepo(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestRepository_CreateIfAbsent(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	c := &Challenge{
		ID:        "c1",
		UserID:    "u1",
		Purpose:   PurposeMobileVerification,
		CodeHash:  "hash",
		IssuedAt:  now,
		ExpiresAt: now.Add(2 * time.Minute),
	}

	mock.ExpectQuery(`INSERT INTO challenges .* ON CONFLICT \(user_id\) DO NOTHING`).
		WithArgs("c1", "u1", PurposeMobileVerification, "hash", c.IssuedAt, c.ExpiresAt).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	created, err := repo.CreateIfAbsent(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, c.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateIfAbsentConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO challenges`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))

	created, err := repo.CreateIfAbsent(context.Background(), &Challenge{ID: "c2", UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByUserNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .* FROM challenges`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByUser(context.Background(), "u1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepository_ReplaceGuardsIssuedAt(t *testing.T) {
	repo, mock := newMockRepo(t)
	prev := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	next := prev.Add(6 * time.Minute)

	c := &Challenge{
		ID:        "c1",
		UserID:    "u1",
		Purpose:   PurposeMobileVerification,
		CodeHash:  "new-hash",
		IssuedAt:  next,
		ExpiresAt: next.Add(2 * time.Minute),
	}

	mock.ExpectExec(`UPDATE challenges .* WHERE id = \$1 AND issued_at = \$6`).
		WithArgs("c1", PurposeMobileVerification, "new-hash", next, c.ExpiresAt, prev).
		WillReturnResult(sqlmock.NewResult(0, 0))

	replaced, err := repo.Replace(context.Background(), c, prev)
	require.NoError(t, err)
	assert.False(t, replaced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RecordFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE challenges\s+SET attempts = attempts \+ 1`).
		WithArgs("c1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(2))

	attempts, err := repo.RecordFailure(context.Background(), "c1", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeactivateOnlyOnce(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{name: "active challenge consumed", rows: 1},
		{name: "already consumed", rows: 0, wantErr: ErrInvalidOrExpired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectExec(`UPDATE challenges\s+SET is_active = FALSE.*WHERE id = \$1 AND is_active`).
				WithArgs("c1").
				WillReturnResult(sqlmock.NewResult(0, tc.rows))

			err := repo.Deactivate(context.Background(), "c1")
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
