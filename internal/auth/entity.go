// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// LoginMethod records how the session's family was started. Rotation
// keeps the method of the first link.
type LoginMethod string

const (
	MethodPassword LoginMethod = "password"
	MethodOTP      LoginMethod = "otp"
)

// RefreshToken is one link in a rotation family. Presenting a used link
// revokes the whole family.
type RefreshToken struct {
	ID           string      `db:"id"`
	UserID       string      `db:"user_id"`
	TokenHash    string      `db:"token_hash"`
	FamilyID     string      `db:"family_id"`
	ExpiresAt    time.Time   `db:"expires_at"`
	CreatedAt    time.Time   `db:"created_at"`
	IsUsed       bool        `db:"is_used"`
	UsedAt       *time.Time  `db:"used_at"`
	RevokedAt    *time.Time  `db:"revoked_at"`
	ReplacedByID *string     `db:"replaced_by_id"`
	UserAgent    string      `db:"user_agent"`
	IPAddress    string      `db:"ip_address"`
	Method       LoginMethod `db:"method"`
}

type TokenState int

const (
	TokenValid TokenState = iota
	TokenReused
	TokenRevoked
	TokenExpired
)

// State orders the checks so reuse wins over revocation and expiry.
func (t *RefreshToken) State(now time.Time) TokenState {
	switch {
	case t.IsUsed:
		return TokenReused
	case t.RevokedAt != nil:
		return TokenRevoked
	case !now.Before(t.ExpiresAt):
		return TokenExpired
	default:
		return TokenValid
	}
}
