package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhall/workbench/internal/domain/auth"
)

type stubValidator struct {
	claims *auth.Claims
	err    error
}

func (s *stubValidator) Validate(string) (*auth.Claims, error) {
	return s.claims, s.err
}

func protectedHandler(t *testing.T, validator TokenValidator) http.Handler {
	t.Helper()
	return SessionMiddleware(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		require.True(t, claims.WorkshopMode)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestSessionMiddlewareMissingHeader(t *testing.T) {
	handler := protectedHandler(t, &stubValidator{})
	for _, header := range []string{"", "token abc", "bearer lowercase"} {
		req := httptest.NewRequest(http.MethodGet, "/edit", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "No valid session token provided", body["error"])
	}
}

func TestSessionMiddlewareRejectedToken(t *testing.T) {
	handler := protectedHandler(t, &stubValidator{err: auth.ErrSessionExpired})

	req := httptest.NewRequest(http.MethodGet, "/edit", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Session expired", body["error"])
}

func TestSessionMiddlewarePassesClaims(t *testing.T) {
	handler := protectedHandler(t, &stubValidator{claims: &auth.Claims{WorkshopMode: true}})

	req := httptest.NewRequest(http.MethodGet, "/edit", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
