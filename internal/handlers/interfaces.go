package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/videos"
)

// AccountService captures the account operations used by the user handlers.
type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (models.User, error)
	Login(ctx context.Context, in accounts.LoginInput) (models.User, models.SessionTokens, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	CurrentUser(ctx context.Context, userID string) (models.User, error)
	UpdateAccount(ctx context.Context, userID, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, userID string, file storage.StagedFile) (models.User, error)
	UpdateCoverImage(ctx context.Context, userID string, file storage.StagedFile) (models.User, error)
}

// ChannelService exposes channel profiles, watch history and subscriptions.
type ChannelService interface {
	Profile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// VideoService captures video publishing and browsing.
type VideoService interface {
	Publish(ctx context.Context, in videos.PublishInput) (models.Video, error)
	Get(ctx context.Context, videoID, viewerID string) (models.VideoDetails, error)
	List(ctx context.Context, q videos.ListQuery) (models.VideoPage, error)
	Update(ctx context.Context, in videos.UpdateInput) (models.Video, error)
	Delete(ctx context.Context, videoID, actorID string) error
	TogglePublish(ctx context.Context, videoID, actorID string) (models.Video, error)
}
