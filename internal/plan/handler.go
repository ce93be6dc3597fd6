// AngelaMos | 2026
// handler.go

package plan

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/angelamos/scribe/internal/core"
	"github.com/angelamos/scribe/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/plans", func(r chi.Router) {
		r.Get("/", h.ListPlans)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.GetUsage)
		})
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/plans", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/", h.CreatePlan)
		r.Post("/assign", h.AssignPlan)
	})
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToPlanResponseList(plans))
}

func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	up, err := h.service.Usage(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	core.OK(w, ToUsageResponse(up))
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.CreatePlan(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.Created(w, ToPlanResponse(p))
}

func (h *Handler) AssignPlan(w http.ResponseWriter, r *http.Request) {
	var req AssignPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	up, err := h.service.AssignPlan(r.Context(), req.UserID, req.PlanID)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.OK(w, ToUsageResponse(up))
}

// WriteError renders plan and quota failures. The generation handler
// shares it for the quota conflicts it surfaces.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrQuotaExhausted):
		core.Conflict(w, "planGeneration", "generation quota exhausted")
	case errors.Is(err, ErrUserPlanNotFound):
		core.Conflict(w, "userPlanNotFound", "no active plan for user")
	case errors.Is(err, ErrPlanNotFound):
		core.Conflict(w, "planNotFound", "plan not found")
	case errors.Is(err, ErrNoDefaultPlan):
		core.InternalServerError(w, err)
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("plan"))
	default:
		core.InternalServerError(w, err)
	}
}
