// AngelaMos | 2026
// entity.go

package challenge

import (
	"errors"
	"time"
)

const PurposeMobileVerification = "mobile_verification"

var (
	ErrAlreadyIssued    = errors.New("challenge already issued")
	ErrInvalidOrExpired = errors.New("challenge invalid or expired")
)

// Challenge is the single one-time code record a user may hold. Only the
// hash of the code is persisted.
type Challenge struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Purpose   string    `db:"purpose"`
	CodeHash  string    `db:"code_hash"`
	IsActive  bool      `db:"is_active"`
	Attempts  int       `db:"attempts"`
	IssuedAt  time.Time `db:"issued_at"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (c *Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

func (c *Challenge) IsUsable(now time.Time) bool {
	return c.IsActive && !c.IsExpired(now)
}

// Issued pairs a stored challenge with its plaintext code. The code only
// lives in memory long enough to be delivered or returned once.
type Issued struct {
	Challenge *Challenge
	Code      string
	// First is set when no challenge existed for the user before.
	First bool
}
