// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelamos/scribe/internal/core"
)

type verifierFunc func(ctx context.Context, token string) (*AccessTokenClaims, error)

func (f verifierFunc) VerifyAccessToken(ctx context.Context, token string) (*AccessTokenClaims, error) {
	return f(ctx, token)
}

func TestAuthenticator(t *testing.T) {
	verifier := verifierFunc(func(_ context.Context, token string) (*AccessTokenClaims, error) {
		switch token {
		case "good":
			return &AccessTokenClaims{UserID: "user-1", Role: "user"}, nil
		case "old":
			return nil, fmt.Errorf("verify: %w", core.ErrTokenExpired)
		case "revoked":
			return nil, fmt.Errorf("verify: %w", core.ErrTokenRevoked)
		default:
			return nil, fmt.Errorf("verify: %w", core.ErrTokenInvalid)
		}
	})

	var seen string
	h := Authenticator(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired", "Bearer old", http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"revoked", "Bearer revoked", http.StatusUnauthorized, "TOKEN_REVOKED"},
		{"garbage", "Bearer junk", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"valid", "bearer good", http.StatusOK, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
			if tc.wantCode == http.StatusOK {
				assert.Equal(t, "user-1", seen)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		claims *AccessTokenClaims
		want   int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"user", &AccessTokenClaims{UserID: "u", Role: "user"}, http.StatusForbidden},
		{"admin", &AccessTokenClaims{UserID: "a", Role: RoleAdmin}, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tc.claims))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
