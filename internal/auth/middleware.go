package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/isdelr/ender-auth/internal/httpx/respond"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// CookieName is the cookie that carries the token when cookie transport is used.
const CookieName = "token"

type contextKey string

// UserIDKey is the context key for the authenticated user id.
const UserIDKey = contextKey("userID")

// Verifier resolves a token to a user id.
type Verifier interface {
	Verify(token string) (string, error)
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFromContext returns the id attached by Guard.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

// TokenFromRequest extracts the token from the Authorization header,
// falling back to the token cookie.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if scheme, token, ok := strings.Cut(authHeader, " "); ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}

	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Guard creates a middleware for protecting routes.
func Guard(tokens Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := TokenFromRequest(r)
			if tokenStr == "" {
				respond.Fail(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("Rejected auth token")
				respond.Fail(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}

			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("user_id", userID)
			})
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
