// middleware.go — HTTP middleware for auth enforcement.
// Provides Bearer token extraction and user context injection.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type to avoid context key collisions.
type contextKey string

const claimsKey contextKey = "auth_claims"

// RequireAuth validates the Bearer JWT in the Authorization header. On
// success, the parsed claims are injected into the request context. On
// failure, responds 401 JSON.
func RequireAuth(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractBearerToken(r)
		if tokenStr == "" {
			WriteError(w, http.StatusUnauthorized, "missing_token", "Authorization header required")
			return
		}

		claims, err := ValidateAccessToken(tokenStr)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// OptionalAuth injects claims when a valid Bearer token is present but never
// rejects the request. Used by endpoints that personalize for logged-in users
// and degrade to anonymous behavior otherwise.
func OptionalAuth(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tokenStr := extractBearerToken(r); tokenStr != "" {
			if claims, err := ValidateAccessToken(tokenStr); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), claimsKey, claims))
			}
		}
		next.ServeHTTP(w, r)
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
// Returns nil if no auth middleware ran or the request was anonymous.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c
	}
	return nil
}

// UserIDFromContext returns the authenticated user's ID, or "" for anonymous.
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Subject
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
