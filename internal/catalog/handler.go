// AngelaMos | 2026
// handler.go

package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/angelamos/scribe/internal/core"
)

const DefaultLang = "en"

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

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{categoryID}", h.GetCategory)
	})
	r.Get("/tones", h.ListTones)
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/catalog", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/categories", h.CreateCategory)
		r.Put("/categories/{categoryID}/locales", h.UpsertLocale)
		r.Put("/categories/{categoryID}/prompt", h.UpsertPrompt)
		r.Post("/categories/{categoryID}/inputs", h.AddInput)
		r.Post("/tones", h.CreateTone)
	})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	lang, ok := requestLang(w, r)
	if !ok {
		return
	}

	categories, err := h.service.ListCategories(r.Context(), lang)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if categories == nil {
		categories = []Category{}
	}

	core.OK(w, categories)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	lang, ok := requestLang(w, r)
	if !ok {
		return
	}

	detail, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "categoryID"), lang)
	if errors.Is(err, ErrCategoryNotFound) {
		core.NotFound(w, "category")
		return
	}
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, detail)
}

func (h *Handler) ListTones(w http.ResponseWriter, r *http.Request) {
	tones, err := h.service.ListTones(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if tones == nil {
		tones = []Tone{}
	}

	core.OK(w, tones)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.CreateCategory(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.Created(w, c)
}

func (h *Handler) UpsertLocale(w http.ResponseWriter, r *http.Request) {
	var req LocaleRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.UpsertLocale(r.Context(), chi.URLParam(r, "categoryID"), req); err != nil {
		WriteError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) UpsertPrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.UpsertPrompt(r.Context(), chi.URLParam(r, "categoryID"), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.OK(w, p)
}

func (h *Handler) AddInput(w http.ResponseWriter, r *http.Request) {
	var req InputRequest
	if !h.decode(w, r, &req) {
		return
	}

	in, err := h.service.AddInput(r.Context(), chi.URLParam(r, "categoryID"), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.Created(w, in)
}

func (h *Handler) CreateTone(w http.ResponseWriter, r *http.Request) {
	var req ToneRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.CreateTone(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.Created(w, t)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

// requestLang reads ?lang=, defaulting to DefaultLang. Unparseable tags
// are rejected.
func requestLang(w http.ResponseWriter, r *http.Request) (string, bool) {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		return DefaultLang, true
	}

	if _, err := language.Parse(lang); err != nil {
		core.BadRequest(w, "lang must be a valid language tag")
		return "", false
	}

	return lang, true
}

// WriteError renders reference data misses as conflicts keyed by the
// missing kind.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCategoryNotFound):
		core.Conflict(w, "categoryNotFound", "category not found")
	case errors.Is(err, ErrPromptNotFound):
		core.Conflict(w, "promptNotFound", "prompt not found")
	case errors.Is(err, ErrToneNotFound):
		core.Conflict(w, "toneNotFound", "tone not found")
	case errors.Is(err, ErrInputsNotFound):
		core.Conflict(w, "inputsNotFound", "inputs not found")
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("catalog entry"))
	default:
		core.InternalServerError(w, err)
	}
}
