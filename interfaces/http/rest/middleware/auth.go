// Package middleware holds the HTTP middleware chain: authentication,
// permission gating and request logging.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"savinggrace-backend/pkg/auth"
	"savinggrace-backend/pkg/common"
)

// Authenticate validates the bearer token and attaches the caller
// identity to the request context. Requests without a valid token stop
// here with a 401.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header format")
				return
			}

			user, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Token validation failed",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)

				message := "Invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					message = "Token has expired"
				}
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
				return
			}

			ctx := auth.SetUserInContext(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates a route on a "resource:action" permission of
// the caller's role.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.GetUserFromContext(r.Context())
			if user == nil {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if !auth.HasPermission(user.Role, permission) {
				common.RespondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a route on a minimum role in the hierarchy.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.GetUserFromContext(r.Context())
			if user == nil {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if !auth.HasRole(user.Role, role) {
				common.RespondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "Insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
