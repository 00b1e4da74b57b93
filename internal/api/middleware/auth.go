package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pasacoin/pasanaku-server/internal/auth"
)

type contextKey string

const addressContextKey contextKey = "address"

// Auth creates authentication middleware. It verifies the bearer token and
// stores the caller's wallet address in the request context.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"code":401,"message":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, `{"code":401,"message":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == "" {
				http.Error(w, `{"code":401,"message":"empty token"}`, http.StatusUnauthorized)
				return
			}

			claims, err := jwtManager.Validate(token)
			if err != nil {
				http.Error(w, `{"code":401,"message":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), addressContextKey, claims.Address)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAddress retrieves the authenticated wallet address from the request
// context. It returns the empty string when the request was not
// authenticated.
func GetAddress(ctx context.Context) string {
	address, _ := ctx.Value(addressContextKey).(string)
	return address
}
