// AngelaMos | 2026
// dto.go

package onboarding

import (
	"time"
)

type ChallengeRequest struct {
	Mobile string `json:"mobile" validate:"required,min=10,max=20"`
}

type VerifyRequest struct {
	Mobile string `json:"mobile" validate:"required,min=10,max=20"`
	Code   string `json:"code"   validate:"required,numeric,min=4,max=10"`
}

type ChallengeResult struct {
	UserID    string
	Code      string
	ExpiresAt time.Time
	Created   bool
}

type ChallengeResponse struct {
	UserID    string    `json:"user_id"`
	Code      string    `json:"code,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func ToChallengeResponse(r *ChallengeResult) ChallengeResponse {
	return ChallengeResponse{
		UserID:    r.UserID,
		Code:      r.Code,
		ExpiresAt: r.ExpiresAt,
	}
}
