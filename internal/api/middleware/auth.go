// Package middleware provides HTTP middleware for stockpulse.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/stockpulse/stockpulse/internal/api/jsonapi"
	"github.com/stockpulse/stockpulse/internal/auth"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// RequireAuth validates the Bearer JWT in the Authorization header.
// On success it injects *auth.Claims into the request context.
// On failure it writes a 401 JSON:API error response.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"missing_token", "Unauthorized", "Authorization header is required")
				return
			}

			claims, err := auth.ParseAccessToken(token, secret)
			if err != nil {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"invalid_token", "Unauthorized", "access token is invalid or expired")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts Claims from the request context.
// Returns nil if not present.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	v := ctx.Value(claimsKey)
	if v == nil {
		return nil
	}
	c, _ := v.(*auth.Claims)
	return c
}

// RequireService guards the trigger endpoints with a static bearer token
// intended for the scheduler or an ops runbook, not for end users. A
// request with a missing or mismatched token is rejected before any
// schedule work starts.
func RequireService(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				jsonapi.RenderError(w, http.StatusServiceUnavailable,
					"not_configured", "Service Unavailable", "trigger endpoints are disabled: no service token configured")
				return
			}
			got := extractBearerToken(r)
			if got == "" {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"missing_token", "Unauthorized", "Authorization header is required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"invalid_token", "Unauthorized", "service token is invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
