package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/docsrag/internal/api"
	"github.com/cloo-solutions/docsrag/internal/domain"
)

type contextKey string

type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) error
}

// StaticKey accepts exactly one configured bearer token.
type StaticKey string

func (k StaticKey) ValidateAPIKey(_ context.Context, token string) error {
	if k == "" || subtle.ConstantTimeCompare([]byte(k), []byte(token)) != 1 {
		return domain.ErrInvalidAPIKey
	}
	return nil
}

func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			if err := validator.ValidateAPIKey(r.Context(), token); err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
