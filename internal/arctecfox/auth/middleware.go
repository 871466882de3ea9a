package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"github.com/gartstein/arctecfox/internal/arctecfox/models"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

// IdentityResolver turns a bearer token into an identity.
type IdentityResolver interface {
	GetUser(ctx context.Context, token string) (*models.AuthUser, error)
}

// HTTPMiddleware authenticates requests whose path starts with one of the
// protected prefixes.
func HTTPMiddleware(next http.Handler, resolver IdentityResolver, protected ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isProtectedRequest(r, protected) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := extractTokenFromHeader(r)
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}

		user, err := resolver.GetUser(r.Context(), tokenString)
		if err != nil {
			if errors.Is(err, e.ErrUnauthenticated) {
				writeUnauthorized(w, "invalid token")
				return
			}
			http.Error(w, `{"code":"internal","message":"identity lookup failed"}`, http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, tokenString)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the identity stored by HTTPMiddleware.
func UserFromContext(ctx context.Context) (*models.AuthUser, bool) {
	user, ok := ctx.Value(userContextKey).(*models.AuthUser)
	return user, ok
}

// TokenFromContext returns the bearer token stored by HTTPMiddleware.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header required")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errors.New("invalid authorization format: missing Bearer prefix")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return "", errors.New("invalid authorization format: empty token")
	}
	return tokenString, nil
}

func isProtectedRequest(r *http.Request, protected []string) bool {
	for _, p := range protected {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"code":"unauthenticated","message":"` + strings.ReplaceAll(message, `"`, `'`) + `"}`))
}
