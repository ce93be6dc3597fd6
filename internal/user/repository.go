// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelamos/scribe/internal/core"
)

const (
	mobileConstraint = "users_mobile_key"
	emailConstraint  = "users_email_key"
)

var (
	ErrMobileTaken = errors.New("mobile already registered")
	ErrEmailTaken  = errors.New("email already registered")
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByMobile(ctx context.Context, mobile string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	MarkMobileVerified(ctx context.Context, id string, at time.Time) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int, error)
}

type repository struct {
	db core.DBTX
}

// NewRepository accepts either the pool or a transaction so sign-up can
// create the user and its plan binding atomically.
func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const userColumns = `id, mobile, email, password_hash, name, role, source,
		       mobile_verified_at, is_active, is_blocked, token_version,
		       created_at, updated_at, deleted_at`

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, mobile, email, password_hash, name, role, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING is_active, is_blocked, token_version, created_at, updated_at`

	row := struct {
		IsActive     bool      `db:"is_active"`
		IsBlocked    bool      `db:"is_blocked"`
		TokenVersion int       `db:"token_version"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
	}{}

	err := r.db.GetContext(ctx, &row, query,
		user.ID,
		user.Mobile,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
		user.Source,
	)
	if err != nil {
		switch {
		case core.IsDuplicateKeyError(err, mobileConstraint):
			return fmt.Errorf("create user: %w: %w", ErrMobileTaken, core.ErrDuplicateKey)
		case core.IsDuplicateKeyError(err, emailConstraint):
			return fmt.Errorf("create user: %w: %w", ErrEmailTaken, core.ErrDuplicateKey)
		case core.IsDuplicateKeyError(err, ""):
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	user.IsActive = row.IsActive
	user.IsBlocked = row.IsBlocked
	user.TokenVersion = row.TokenVersion
	user.CreatedAt = row.CreatedAt
	user.UpdatedAt = row.UpdatedAt

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`

	return r.getOne(ctx, "get user", query, id)
}

func (r *repository) GetByMobile(
	ctx context.Context,
	mobile string,
) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE mobile = $1 AND deleted_at IS NULL`

	return r.getOne(ctx, "get user by mobile", query, mobile)
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND deleted_at IS NULL`

	return r.getOne(ctx, "get user by email", query, email)
}

func (r *repository) getOne(
	ctx context.Context,
	op, query string,
	arg any,
) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

func (r *repository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, role = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.Name,
		user.Email,
		user.Role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if core.IsDuplicateKeyError(err, emailConstraint) {
		return fmt.Errorf("update user: %w: %w", ErrEmailTaken, core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

func (r *repository) IncrementTokenVersion(
	ctx context.Context,
	id string,
) error {
	query := `
		UPDATE users
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "increment token version", query, id)
}

// MarkMobileVerified keeps the first verification time on repeat logins.
func (r *repository) MarkMobileVerified(
	ctx context.Context,
	id string,
	at time.Time,
) error {
	query := `
		UPDATE users
		SET mobile_verified_at = COALESCE(mobile_verified_at, $2),
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "mark mobile verified", query, id, at)
}

func (r *repository) SetBlocked(
	ctx context.Context,
	id string,
	blocked bool,
) error {
	query := `
		UPDATE users
		SET is_blocked = $2,
		    token_version = token_version + CASE WHEN $2 THEN 1 ELSE 0 END,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "set blocked", query, id, blocked)
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "delete user", query, id)
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(mobile ILIKE $%d OR email ILIKE $%d OR name ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	if params.Blocked != nil {
		conditions = append(conditions, fmt.Sprintf("is_blocked = $%d", argIdx))
		args = append(args, *params.Blocked)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM users WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT `+userColumns+`
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
