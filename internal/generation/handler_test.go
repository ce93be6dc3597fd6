// AngelaMos | 2026
// handler_test.go

package generation

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/scribe/internal/core"
	"github.com/angelamos/scribe/internal/middleware"
)

func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
				UserID: userID,
				Role:   "user",
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

const validBody = `{
	"category": "6f1c2f4e-8d1a-4c4b-9a51-0f3a1f5b2c10",
	"tone": "0b9d6b0e-2f43-4f0c-a1c9-5b3e7e2d8a11",
	"inputs": {"product": "green tea"},
	"variant": 2,
	"lang": "en"
}`

func newTestRouter(h *harness) *chi.Mux {
	h.catalog.category.ID = "6f1c2f4e-8d1a-4c4b-9a51-0f3a1f5b2c10"
	h.catalog.tone.ID = "0b9d6b0e-2f43-4f0c-a1c9-5b3e7e2d8a11"

	r := chi.NewRouter()
	NewHandler(h.service).RegisterRoutes(r, asUser(testUser), nil)
	return r
}

func post(r http.Handler, body string, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generations/", bytes.NewBufferString(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body core.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestHandler_GenerateCreated(t *testing.T) {
	h := newHarness(0, 5)
	r := newTestRouter(h)

	rec := post(r, validBody, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data HistoryResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, testUser, body.Data.User)
	assert.Equal(t, "Fresh green tea, delivered.", body.Data.Content)
	assert.Equal(t, 2, h.plans.used("up-1"))
}

func TestHandler_ReplayReturnsOK(t *testing.T) {
	h := newHarness(0, 5)
	r := newTestRouter(h)

	require.Equal(t, http.StatusCreated, post(r, validBody, "k-1").Code)
	assert.Equal(t, http.StatusOK, post(r, validBody, "k-1").Code)
	assert.Equal(t, 2, h.plans.used("up-1"))
}

func TestHandler_QuotaExhaustedIsConflict(t *testing.T) {
	h := newHarness(5, 5)
	r := newTestRouter(h)

	rec := post(r, validBody, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "planGeneration", errorCode(t, rec))
}

func TestHandler_ProviderFailureIsBadGateway(t *testing.T) {
	h := newHarness(0, 5)
	h.provider.err = errors.New("upstream 500")
	r := newTestRouter(h)

	rec := post(r, validBody, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "providerFailure", errorCode(t, rec))
}

func TestHandler_MissingToneIsConflict(t *testing.T) {
	h := newHarness(0, 5)
	r := newTestRouter(h)
	h.catalog.tone = nil

	rec := post(r, validBody, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "toneNotFound", errorCode(t, rec))
}

func TestHandler_ValidationFailures(t *testing.T) {
	h := newHarness(0, 5)
	r := newTestRouter(h)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"category":`},
		{"no inputs", `{"category":"6f1c2f4e-8d1a-4c4b-9a51-0f3a1f5b2c10","tone":"0b9d6b0e-2f43-4f0c-a1c9-5b3e7e2d8a11","inputs":{},"variant":1,"lang":"en"}`},
		{"bad category id", `{"category":"x","tone":"0b9d6b0e-2f43-4f0c-a1c9-5b3e7e2d8a11","inputs":{"a":"b"},"variant":1,"lang":"en"}`},
		{"temperature too high", `{"category":"6f1c2f4e-8d1a-4c4b-9a51-0f3a1f5b2c10","tone":"0b9d6b0e-2f43-4f0c-a1c9-5b3e7e2d8a11","inputs":{"a":"b"},"variant":1,"temperature":3,"lang":"en"}`},
		{"variant above max", `{"category":"6f1c2f4e-8d1a-4c4b-9a51-0f3a1f5b2c10","tone":"0b9d6b0e-2f43-4f0c-a1c9-5b3e7e2d8a11","inputs":{"product":"b"},"variant":9,"lang":"en"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(r, tc.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Zero(t, h.provider.calls.Load())
}

func TestHandler_ListHistory(t *testing.T) {
	h := newHarness(0, 5)
	r := newTestRouter(h)

	require.Equal(t, http.StatusCreated, post(r, validBody, "").Code)

	req := httptest.NewRequest(http.MethodGet, "/generations/?page=1&page_size=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []HistoryResponse `json:"data"`
		Meta core.Pagination   `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, 1, body.Meta.Total)
}
