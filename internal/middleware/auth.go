package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/maxjung/messagely-be/internal/http/respond"
)

type contextKey string

const identityKey contextKey = "identity"

// ClaimResolver resolves a bearer token to a username.
type ClaimResolver interface {
	Resolve(token string) (string, error)
}

// RequireClaim gates a handler behind a valid identity claim. The resolved
// username is stored in the request context; any failure produces the same
// 401 regardless of cause.
func RequireClaim(resolver ClaimResolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		username, err := resolver.Resolve(token)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity returns the username RequireClaim resolved for this request.
func Identity(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(identityKey).(string)
	return username, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
