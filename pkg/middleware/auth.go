package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwtutil "github.com/Dias221467/Streak_Tracker/pkg/jwt"
	"github.com/sirupsen/logrus"
)

type contextKey string

const userContextKey contextKey = "user"

// ErrNotAuthenticated is returned when a request carries no valid identity.
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthMiddleware validates the bearer token and stores its claims in the request context.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(header, "Bearer ")
			if header == "" || tokenString == header {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwtutil.ValidateToken(tokenString, secret)
			if err != nil {
				logrus.WithError(err).Warn("Rejected invalid token")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
		})
	}
}

func WithUser(ctx context.Context, claims *jwtutil.Claims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}

// GetUserFromContext returns the claims stored by AuthMiddleware, or nil.
func GetUserFromContext(ctx context.Context) *jwtutil.Claims {
	claims, _ := ctx.Value(userContextKey).(*jwtutil.Claims)
	return claims
}

// CurrentUser is the session accessor: the signed-in identity or ErrNotAuthenticated.
func CurrentUser(ctx context.Context) (*jwtutil.Claims, error) {
	claims := GetUserFromContext(ctx)
	if claims == nil || claims.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	return claims, nil
}
