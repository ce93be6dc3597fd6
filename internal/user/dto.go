// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type CreateStaffRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Role     string `json:"role"     validate:"required,oneof=user admin"`
}

type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"  validate:"omitempty,min=1,max=100"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type UpdateUserBlockRequest struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

type UserResponse struct {
	ID             string     `json:"id"`
	Mobile         string     `json:"mobile,omitempty"`
	Email          string     `json:"email,omitempty"`
	Name           string     `json:"name"`
	Role           string     `json:"role"`
	Source         string     `json:"source"`
	MobileVerified bool       `json:"mobile_verified"`
	IsActive       bool       `json:"is_active"`
	IsBlocked      bool       `json:"is_blocked"`
	VerifiedAt     *time.Time `json:"mobile_verified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
	Blocked  *bool  `json:"blocked"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Mobile:         u.MobileNumber(),
		Email:          u.EmailAddress(),
		Name:           u.Name,
		Role:           u.Role,
		Source:         u.Source,
		MobileVerified: u.MobileVerifiedAt != nil,
		IsActive:       u.IsActive,
		IsBlocked:      u.IsBlocked,
		VerifiedAt:     u.MobileVerifiedAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}
