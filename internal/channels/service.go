// Package channels assembles the public channel profile, the watch history
// and subscription edges.
package channels

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// Service answers channel profile, history and subscription requests.
type Service struct {
	channels      repositories.ChannelRepository
	subscriptions repositories.SubscriptionRepository
}

// NewService wires the service to its repositories.
func NewService(channels repositories.ChannelRepository, subscriptions repositories.SubscriptionRepository) *Service {
	return &Service{channels: channels, subscriptions: subscriptions}
}

// Profile returns the public profile of the channel named username as seen by
// viewerID. An empty viewerID is an anonymous viewer.
func (s *Service) Profile(ctx context.Context, username, viewerID string) (profile models.ChannelProfile, err error) {
	ctx, span := logging.StartSpan(ctx, "channels.profile")
	defer func() { span.End(err) }()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return models.ChannelProfile{}, apperror.BadRequest("username is missing")
	}

	profile, err = s.channels.ChannelProfile(ctx, username, viewerID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return models.ChannelProfile{}, apperror.NotFound("channel does not exist")
	case err != nil:
		return models.ChannelProfile{}, apperror.Internal("failed to load channel profile", err)
	}
	return profile, nil
}

// WatchHistory returns the videos userID watched, most recent first.
func (s *Service) WatchHistory(ctx context.Context, userID string) (history []models.WatchedVideo, err error) {
	ctx, span := logging.StartSpan(ctx, "channels.watch_history")
	defer func() { span.End(err) }()

	if userID == "" {
		return nil, apperror.Unauthorized("unauthorized request")
	}

	history, err = s.channels.WatchHistory(ctx, userID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, apperror.NotFound("user not found")
	case err != nil:
		return nil, apperror.Internal("failed to load watch history", err)
	}
	if history == nil {
		history = []models.WatchedVideo{}
	}
	return history, nil
}

// ToggleSubscription subscribes or unsubscribes subscriberID from channelID
// and reports the resulting state.
func (s *Service) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (subscribed bool, err error) {
	ctx, span := logging.StartSpan(ctx, "channels.toggle_subscription")
	defer func() { span.End(err) }()

	if subscriberID == "" {
		return false, apperror.Unauthorized("unauthorized request")
	}
	channelID = strings.TrimSpace(channelID)
	if _, perr := uuid.Parse(channelID); perr != nil {
		return false, apperror.BadRequest("invalid channel id")
	}
	if channelID == subscriberID {
		return false, apperror.BadRequest("cannot subscribe to your own channel")
	}

	subscribed, err = s.subscriptions.Toggle(ctx, subscriberID, channelID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return false, apperror.NotFound("channel does not exist")
	case err != nil:
		return false, apperror.Internal("failed to toggle subscription", err)
	}
	return subscribed, nil
}
