package middleware

import (
	"context"
	"net/http"
	"strings"
)

// userIDKey is the context key for the resolved user.
type userIDKey struct{}

// UserIDHeader is the fallback header carrying a user identity directly,
// for clients (and tests) without a token.
const UserIDHeader = "X-User-ID"

// ResolveUser extracts the requesting user from the Authorization header
// (Bearer token, used opaquely as the identity) or the X-User-ID header.
// Requests without either pass through anonymous; handlers that spawn
// pipelines reject anonymous requests themselves, so metadata endpoints
// stay open.
func ResolveUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := ""
		if auth := r.Header.Get("Authorization"); auth != "" {
			if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
				userID = strings.TrimSpace(token)
			}
		}
		if userID == "" {
			userID = strings.TrimSpace(r.Header.Get(UserIDHeader))
		}
		// Session URLs carry the user as a query parameter so plain
		// <video> elements, which cannot set headers, still resolve.
		if userID == "" {
			userID = strings.TrimSpace(r.URL.Query().Get("user"))
		}

		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the resolved user ID, or "" for anonymous.
func UserFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}
