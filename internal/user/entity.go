// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID               string     `db:"id"`
	Mobile           *string    `db:"mobile"`
	Email            *string    `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	Name             string     `db:"name"`
	Role             string     `db:"role"`
	Source           string     `db:"source"`
	MobileVerifiedAt *time.Time `db:"mobile_verified_at"`
	IsActive         bool       `db:"is_active"`
	IsBlocked        bool       `db:"is_blocked"`
	TokenVersion     int        `db:"token_version"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanSignIn is false for deactivated and blocked accounts.
func (u *User) CanSignIn() bool {
	return u.IsActive && !u.IsBlocked && !u.IsDeleted()
}

func (u *User) MobileNumber() string {
	if u.Mobile == nil {
		return ""
	}
	return *u.Mobile
}

func (u *User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	SourceMobile = "mobile"
	SourceStaff  = "staff"
)
