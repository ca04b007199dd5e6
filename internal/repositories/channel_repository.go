package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// ChannelRepository resolves the aggregated channel views.
type ChannelRepository interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
}

// SubscriptionRepository maintains subscriber to channel edges.
type SubscriptionRepository interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
}
