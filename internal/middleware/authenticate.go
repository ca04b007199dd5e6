package middleware

import (
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
)

// AccessTokenCookie is the cookie set on login and refresh.
const AccessTokenCookie = "accessToken"

// TokenVerifier resolves an access token into a user id.
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// RequireAuth rejects requests without a valid access token.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized request")
				return
			}

			userID, err := verifier.VerifyAccessToken(token)
			if err != nil {
				logging.FromContext(r.Context()).Debug("access token rejected", "error", err)
				writeError(w, http.StatusUnauthorized, apperror.MessageOf(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth attaches the caller when a valid token is presented and
// otherwise lets the request through anonymously.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := accessToken(r); token != "" {
				if userID, err := verifier.VerifyAccessToken(token); err == nil {
					r = r.WithContext(auth.WithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessToken prefers the cookie and falls back to a bearer header.
func accessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
