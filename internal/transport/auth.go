package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/jhall/workbench/internal/domain/auth"
)

type claimsKey struct{}

// TokenValidator validates a bearer session token.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// ClaimsFromContext returns the session claims from context, if present.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok
}

// SessionMiddleware enforces bearer session-token authentication. Invalid,
// missing, or expired tokens always produce 401 so the client clears its
// stored session.
func SessionMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "No valid session token provided")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			claims, err := validator.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Session expired")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
