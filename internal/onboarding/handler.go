// AngelaMos | 2026
// handler.go

package onboarding

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/angelamos/scribe/internal/auth"
	"github.com/angelamos/scribe/internal/challenge"
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

// RegisterRoutes mounts the code endpoints behind limiter, which should
// be keyed tighter than the global limit.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	limiter func(http.Handler) http.Handler,
) {
	r.Route("/auth/otp", func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter)
		}
		r.Post("/", h.RequestCode)
		r.Post("/verify", h.VerifyCode)
	})
}

func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req ChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result, err := h.service.SignUpOrChallenge(r.Context(), req.Mobile)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Created {
		core.Created(w, ToChallengeResponse(result))
		return
	}
	core.OK(w, ToChallengeResponse(result))
}

func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Verify(r.Context(), req, r.UserAgent(), middleware.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, resp)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, challenge.ErrAlreadyIssued):
		core.Conflict(w, "alreadyCodeGenerated", "a code was sent recently, try again later")
	case errors.Is(err, challenge.ErrInvalidOrExpired):
		core.JSONError(w, core.NewAppError(
			err,
			"code is invalid or expired",
			http.StatusUnauthorized,
			"invalidOrExpiredCode",
		))
	case errors.Is(err, ErrInvalidMobile):
		core.BadRequest(w, "mobile must contain 10 to 15 digits")
	case errors.Is(err, ErrUserBlocked), errors.Is(err, auth.ErrAccountBlocked):
		core.JSONError(w, auth.AccountBlockedError())
	default:
		core.InternalServerError(w, err)
	}
}
