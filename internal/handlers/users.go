package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/storage"
)

// UserHandler implements the account and channel endpoints under /api/v1/users.
type UserHandler struct {
	Accounts AccountService
	Channels ChannelService
	Uploads  UploadLimits
	Cookies  CookieOptions
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type loginResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form, err := readMultipart(w, r, h.Uploads.Dir, map[string]int64{
		"avatar":     h.Uploads.MaxImageBytes,
		"coverImage": h.Uploads.MaxImageBytes,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Accounts.Register(ctx, accounts.RegisterInput{
		FullName:   form.value("fullName"),
		Email:      form.value("email"),
		Username:   form.value("username"),
		Password:   form.value("password"),
		Avatar:     form.file("avatar"),
		CoverImage: form.file("coverImage"),
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusCreated, user, "user registered successfully")
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, tokens, err := h.Accounts.Login(ctx, accounts.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.set(w, tokens)
	respondData(ctx, w, http.StatusOK, loginResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Accounts.Logout(ctx, auth.UserIDFromContext(ctx)); err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.clear(w)
	respondData(ctx, w, http.StatusOK, nil, "user logged out")
}

// Refresh handles POST /api/v1/users/refresh-token. The cookie wins over the body.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var presented string
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = strings.TrimSpace(c.Value)
	}
	if presented == "" {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}
		presented = strings.TrimSpace(req.RefreshToken)
	}

	tokens, err := h.Accounts.Refresh(ctx, presented)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.set(w, tokens)
	respondData(ctx, w, http.StatusOK, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Accounts.ChangePassword(ctx, auth.UserIDFromContext(ctx), req.OldPassword, req.NewPassword); err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.clear(w)
	respondData(ctx, w, http.StatusOK, nil, "password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.Accounts.CurrentUser(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, user, "current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Accounts.UpdateAccount(ctx, auth.UserIDFromContext(ctx), req.FullName, req.Email)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, user, "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.Accounts.UpdateAvatar, "avatar updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.Accounts.UpdateCoverImage, "cover image updated successfully")
}

func (h UserHandler) replaceImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID string, file storage.StagedFile) (models.User, error),
	message string,
) {
	ctx := r.Context()

	form, err := readMultipart(w, r, h.Uploads.Dir, map[string]int64{field: h.Uploads.MaxImageBytes})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := update(ctx, auth.UserIDFromContext(ctx), form.file(field))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, user, message)
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, err := h.Channels.Profile(ctx, chi.URLParam(r, "username"), auth.UserIDFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, profile, "user channel fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	history, err := h.Channels.WatchHistory(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, history, "watch history fetched successfully")
}

// SubscriptionHandler implements /api/v1/subscriptions.
type SubscriptionHandler struct {
	Channels ChannelService
}

type subscriptionResponse struct {
	Subscribed bool `json:"subscribed"`
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscribed, err := h.Channels.ToggleSubscription(ctx, auth.UserIDFromContext(ctx), chi.URLParam(r, "channelId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	respondData(ctx, w, http.StatusOK, subscriptionResponse{Subscribed: subscribed}, message)
}
