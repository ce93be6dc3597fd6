// AngelaMos | 2026
// handler.go

package generation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/angelamos/scribe/internal/catalog"
	"github.com/angelamos/scribe/internal/core"
	"github.com/angelamos/scribe/internal/middleware"
	"github.com/angelamos/scribe/internal/plan"
	"github.com/angelamos/scribe/internal/provider"
)

const maxIdempotencyKeyLength = 128

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

// RegisterRoutes mounts the history reads and the metered generate
// endpoint. limiter applies to generate only.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	limiter func(http.Handler) http.Handler,
) {
	r.Route("/generations", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Get("/{historyID}", h.Get)

		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter)
			}
			r.Post("/", h.Generate)
		})
	})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	key := r.Header.Get(idempotencyHeader)
	if len(key) > maxIdempotencyKeyLength {
		core.BadRequest(w, "idempotency key is too long")
		return
	}

	out, err := h.service.Generate(r.Context(), GenerateParams{
		UserID:         middleware.GetUserID(r.Context()),
		CategoryID:     req.Category,
		ToneID:         req.Tone,
		Inputs:         req.Inputs,
		Variant:        req.Variant,
		Temperature:    req.Temperature,
		Lang:           req.Lang,
		IdempotencyKey: key,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if out.Replayed {
		core.OK(w, ToHistoryResponse(out.Entry))
		return
	}
	core.Created(w, ToHistoryResponse(out.Entry))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListHistoryParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
	}

	if err := h.validator.Struct(params); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	entries, total, err := h.service.List(
		r.Context(),
		middleware.GetUserID(r.Context()),
		params.Page,
		params.PageSize,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToHistoryResponseList(entries), params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "historyID"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToHistoryResponse(e))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, plan.ErrQuotaExhausted),
		errors.Is(err, plan.ErrUserPlanNotFound):
		plan.WriteError(w, err)
	case errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, catalog.ErrPromptNotFound),
		errors.Is(err, catalog.ErrToneNotFound),
		errors.Is(err, catalog.ErrInputsNotFound):
		catalog.WriteError(w, err)
	case errors.Is(err, provider.ErrProviderFailure):
		core.JSONError(w, core.UpstreamError("providerFailure", "content generation failed, try again"))
	case errors.Is(err, ErrInvalidVariant):
		core.BadRequest(w, "variant is out of range")
	case errors.Is(err, ErrEmptyInputs):
		core.BadRequest(w, "at least one input value is required")
	case errors.Is(err, ErrHistoryNotFound):
		core.NotFound(w, "history entry")
	default:
		core.InternalServerError(w, err)
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
