// AngelaMos | 2026
// repository_test.go

package user

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
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

func TestRepository_CreateFillsServerDefaults(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mobile := "09120000000"

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("u-1", mobile, nil, "", "", RoleUser, SourceMobile).
		WillReturnRows(sqlmock.NewRows([]string{
			"is_active", "is_blocked", "token_version", "created_at", "updated_at",
		}).AddRow(true, false, 1, now, now))

	u := &User{ID: "u-1", Mobile: &mobile, Role: RoleUser, Source: SourceMobile}
	require.NoError(t, repo.Create(context.Background(), u))

	assert.True(t, u.IsActive)
	assert.Equal(t, 1, u.TokenVersion)
	assert.Equal(t, now, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateMapsUniqueViolations(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{name: "mobile", constraint: mobileConstraint, want: ErrMobileTaken},
		{name: "email", constraint: emailConstraint, want: ErrEmailTaken},
		{name: "other", constraint: "users_pkey", want: core.ErrDuplicateKey},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
				WillReturnError(&pgconn.PgError{
					Code:           "23505",
					ConstraintName: tc.constraint,
				})

			err := repo.Create(context.Background(), &User{ID: "u-1"})
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, core.ErrDuplicateKey)
		})
	}
}

func TestRepository_GetByMobileNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE mobile = $1 AND deleted_at IS NULL")).
		WithArgs("09120000000").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByMobile(context.Background(), "09120000000")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkMobileVerifiedKeepsFirstTime(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("COALESCE(mobile_verified_at, $2)")).
		WithArgs("u-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkMobileVerified(context.Background(), "u-1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdatesReportMissingRows(t *testing.T) {
	tests := []struct {
		name string
		run  func(Repository) error
	}{
		{
			name: "set blocked",
			run: func(r Repository) error {
				return r.SetBlocked(context.Background(), "ghost", true)
			},
		},
		{
			name: "soft delete",
			run: func(r Repository) error {
				return r.SoftDelete(context.Background(), "ghost")
			},
		},
		{
			name: "update password",
			run: func(r Repository) error {
				return r.UpdatePassword(context.Background(), "ghost", "hash")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec("UPDATE users").
				WillReturnResult(sqlmock.NewResult(0, 0))

			assert.ErrorIs(t, tc.run(repo), core.ErrNotFound)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_ListEscapesSearch(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WithArgs(`%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs(`%50\%\_off%`, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	users, total, err := repo.List(context.Background(), ListUsersParams{Search: "50%_off"})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CountWrapsErrors(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Count(context.Background())
	assert.ErrorContains(t, err, "count users")
}
