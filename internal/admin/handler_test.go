// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passthrough(next http.Handler) http.Handler { return next }

func fixed(n int, err error) Counter {
	return func(context.Context) (int, error) { return n, err }
}

type revoker struct{ userID string }

func (r *revoker) LogoutAll(_ context.Context, userID string) error {
	r.userID = userID
	return nil
}

func serve(h *Handler, method, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r, passthrough, passthrough)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestGetStats(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Users:       fixed(12, nil),
		Generations: fixed(40, nil),
		QuotaUsed:   fixed(75, nil),
		Active:      fixed(3, nil),
	})

	rec := serve(h, http.MethodGet, "/admin/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 12, body.Data.Users)
	assert.Equal(t, 40, body.Data.Generations)
	assert.Equal(t, 75, body.Data.QuotaUsed)
	assert.Equal(t, 3, body.Data.ActiveSessions)
	assert.Nil(t, body.Data.Database)
}

func TestGetStats_CounterFailure(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Users:       fixed(1, nil),
		Generations: fixed(0, errors.New("db down")),
	})

	rec := serve(h, http.MethodGet, "/admin/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRevokeUserSessions(t *testing.T) {
	rv := &revoker{}
	h := NewHandler(HandlerConfig{Sessions: rv})

	rec := serve(h, http.MethodDelete, "/admin/sessions/u-9")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u-9", rv.userID)
}
