package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
)

const (
	refreshTokenCookie = "refreshToken"
	maxJSONBodyBytes   = 1 << 20
)

type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type errorEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	if data == nil {
		data = struct{}{}
	}
	respondJSON(ctx, w, status, envelope{StatusCode: status, Data: data, Message: message, Success: true})
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	status := kind.HTTPStatus()

	logger := logging.FromContext(ctx)
	if kind == apperror.KindInternal {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}

	respondJSON(ctx, w, status, errorEnvelope{StatusCode: status, Message: apperror.MessageOf(err)})
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperror.Wrap(apperror.KindBadRequest, "invalid request body", err)
	}
	return nil
}

// CookieOptions controls the session cookies.
type CookieOptions struct {
	Secure bool
}

func (o CookieOptions) set(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, o.cookie(middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, o.cookie(refreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (o CookieOptions) clear(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		c := o.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (o CookieOptions) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
