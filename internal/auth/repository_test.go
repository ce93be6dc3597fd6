// AngelaMos | 2026
// repository_test.go

package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/scribe/internal/core"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRepository_CreateDefaultsToPasswordMethod(t *testing.T) {
	repo, mock := newMockRepo(t)
	expires := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO refresh_tokens`).
		WithArgs("tok-1", "user-1", "hash", "fam-1", expires, "curl", "10.0.0.1", MethodPassword).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	token := &RefreshToken{
		ID:        "tok-1",
		UserID:    "user-1",
		TokenHash: "hash",
		FamilyID:  "fam-1",
		ExpiresAt: expires,
		UserAgent: "curl",
		IPAddress: "10.0.0.1",
	}
	require.NoError(t, repo.Create(context.Background(), token))
	assert.Equal(t, MethodPassword, token.Method)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ClaimForRotation(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{"first claim wins", 1, nil},
		{"already claimed", 0, ErrTokenReuse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND is_used = false AND revoked_at IS NULL`)).
				WithArgs("tok-1", "tok-2").
				WillReturnResult(sqlmock.NewResult(0, tc.rows))

			err := repo.ClaimForRotation(context.Background(), "tok-1", "tok-2")
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FindByHashNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE token_hash = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CountActive(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM refresh_tokens`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.CountActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestRepository_DeleteExpiredUsesCutoff(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2026, 4, 30, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE expires_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
