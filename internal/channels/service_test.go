package channels

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type stubChannelRepo struct {
	profiles map[string]models.ChannelProfile
	history  map[string][]models.WatchedVideo
	err      error

	lastUsername string
	lastViewer   string
}

func (s *stubChannelRepo) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	s.lastUsername = username
	s.lastViewer = viewerID
	if s.err != nil {
		return models.ChannelProfile{}, s.err
	}
	p, ok := s.profiles[username]
	if !ok {
		return models.ChannelProfile{}, repositories.ErrNotFound
	}
	return p, nil
}

func (s *stubChannelRepo) WatchHistory(_ context.Context, userID string) ([]models.WatchedVideo, error) {
	if s.err != nil {
		return nil, s.err
	}
	h, ok := s.history[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return h, nil
}

type stubSubscriptionRepo struct {
	edges map[[2]string]bool
	known map[string]bool
}

func (s *stubSubscriptionRepo) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	if !s.known[channelID] {
		return false, repositories.ErrNotFound
	}
	key := [2]string{subscriberID, channelID}
	s.edges[key] = !s.edges[key]
	return s.edges[key], nil
}

func TestServiceProfile(t *testing.T) {
	repo := &stubChannelRepo{profiles: map[string]models.ChannelProfile{
		"kate": {FullName: "Kate", Username: "kate"},
	}}
	svc := NewService(repo, &stubSubscriptionRepo{})

	profile, err := svc.Profile(context.Background(), "  KaTe ", "")
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if profile.Username != "kate" || profile.SubscribersCount != 0 || profile.IsSubscribed {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if repo.lastUsername != "kate" || repo.lastViewer != "" {
		t.Fatalf("unexpected repository arguments %q %q", repo.lastUsername, repo.lastViewer)
	}

	tests := []struct {
		name     string
		username string
		repoErr  error
		want     apperror.Kind
	}{
		{name: "blank username", username: "   ", want: apperror.KindBadRequest},
		{name: "unknown channel", username: "nobody", want: apperror.KindNotFound},
		{name: "store failure", username: "kate", repoErr: errors.New("boom"), want: apperror.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.err = tt.repoErr
			_, err := svc.Profile(context.Background(), tt.username, "viewer")
			if apperror.KindOf(err) != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestServiceWatchHistory(t *testing.T) {
	v1 := models.WatchedVideo{Video: models.Video{ID: "v1"}}
	v3 := models.WatchedVideo{Video: models.Video{ID: "v3"}}
	repo := &stubChannelRepo{history: map[string][]models.WatchedVideo{
		"user-1": {v3, v1},
		"user-2": nil,
	}}
	svc := NewService(repo, &stubSubscriptionRepo{})

	history, err := svc.WatchHistory(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("WatchHistory returned error: %v", err)
	}
	if len(history) != 2 || history[0].ID != "v3" || history[1].ID != "v1" {
		t.Fatalf("expected order to be preserved, got %+v", history)
	}

	history, err = svc.WatchHistory(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("WatchHistory returned error: %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", history)
	}

	if _, err := svc.WatchHistory(context.Background(), ""); apperror.KindOf(err) != apperror.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.WatchHistory(context.Background(), "ghost"); apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceToggleSubscription(t *testing.T) {
	me := uuid.NewString()
	channel := uuid.NewString()
	subs := &stubSubscriptionRepo{
		edges: map[[2]string]bool{},
		known: map[string]bool{channel: true, me: true},
	}
	svc := NewService(&stubChannelRepo{}, subs)
	ctx := context.Background()

	subscribed, err := svc.ToggleSubscription(ctx, me, channel)
	if err != nil || !subscribed {
		t.Fatalf("expected subscribe, got %v %v", subscribed, err)
	}
	subscribed, err = svc.ToggleSubscription(ctx, me, channel)
	if err != nil || subscribed {
		t.Fatalf("expected unsubscribe, got %v %v", subscribed, err)
	}

	tests := []struct {
		name       string
		subscriber string
		channel    string
		want       apperror.Kind
	}{
		{name: "anonymous", subscriber: "", channel: channel, want: apperror.KindUnauthorized},
		{name: "malformed channel", subscriber: me, channel: "abc", want: apperror.KindBadRequest},
		{name: "self", subscriber: me, channel: me, want: apperror.KindBadRequest},
		{name: "unknown channel", subscriber: me, channel: uuid.NewString(), want: apperror.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ToggleSubscription(ctx, tt.subscriber, tt.channel)
			if apperror.KindOf(err) != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
