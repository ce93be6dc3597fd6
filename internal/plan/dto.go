// AngelaMos | 2026
// dto.go

package plan

import (
	"time"
)

type CreatePlanRequest struct {
	Name       string `json:"name"       validate:"required,min=1,max=100"`
	Generation int    `json:"generation" validate:"min=0,max=1000000"`
	IsDefault  bool   `json:"is_default"`
}

type AssignPlanRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	PlanID string `json:"plan_id" validate:"required,uuid"`
}

type PlanResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Generation int       `json:"generation"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

type UsageResponse struct {
	UserPlanID string `json:"user_plan_id"`
	PlanID     string `json:"plan_id"`
	PlanName   string `json:"plan_name"`
	Generation int    `json:"generation"`
	Used       int    `json:"used"`
	Remaining  int    `json:"remaining"`
}

func ToPlanResponse(p *Plan) PlanResponse {
	return PlanResponse{
		ID:         p.ID,
		Name:       p.Name,
		Generation: p.Generation,
		IsDefault:  p.IsDefault,
		CreatedAt:  p.CreatedAt,
	}
}

func ToPlanResponseList(plans []Plan) []PlanResponse {
	out := make([]PlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, ToPlanResponse(&plans[i]))
	}
	return out
}

func ToUsageResponse(up *UserPlan) UsageResponse {
	return UsageResponse{
		UserPlanID: up.ID,
		PlanID:     up.PlanID,
		PlanName:   up.PlanName,
		Generation: up.Generation,
		Used:       up.Used,
		Remaining:  up.Remaining(),
	}
}
