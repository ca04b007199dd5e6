package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/videos"
)

type accountServiceStub struct {
	registered   accounts.RegisterInput
	avatarBytes  []byte
	loginInput   accounts.LoginInput
	refreshed    string
	loggedOut    string
	passwordUser string
	avatarUser   string
	err          error
	tokens       models.SessionTokens
}

func (s *accountServiceStub) Register(_ context.Context, in accounts.RegisterInput) (models.User, error) {
	s.registered = in
	if in.Avatar.Present() {
		s.avatarBytes, _ = os.ReadFile(in.Avatar.Path)
	}
	if s.err != nil {
		return models.User{}, s.err
	}
	return models.User{ID: "user-1", Username: in.Username}, nil
}

func (s *accountServiceStub) Login(_ context.Context, in accounts.LoginInput) (models.User, models.SessionTokens, error) {
	s.loginInput = in
	if s.err != nil {
		return models.User{}, models.SessionTokens{}, s.err
	}
	return models.User{ID: "user-1", Username: in.Username}, s.tokens, nil
}

func (s *accountServiceStub) Logout(_ context.Context, userID string) error {
	s.loggedOut = userID
	return s.err
}

func (s *accountServiceStub) Refresh(_ context.Context, token string) (models.SessionTokens, error) {
	s.refreshed = token
	if s.err != nil {
		return models.SessionTokens{}, s.err
	}
	return s.tokens, nil
}

func (s *accountServiceStub) ChangePassword(_ context.Context, userID, _, _ string) error {
	s.passwordUser = userID
	return s.err
}

func (s *accountServiceStub) CurrentUser(_ context.Context, userID string) (models.User, error) {
	if s.err != nil {
		return models.User{}, s.err
	}
	return models.User{ID: userID, Username: "kate"}, nil
}

func (s *accountServiceStub) UpdateAccount(_ context.Context, userID, fullName, email string) (models.User, error) {
	return models.User{ID: userID, FullName: fullName, Email: email}, s.err
}

func (s *accountServiceStub) UpdateAvatar(_ context.Context, userID string, file storage.StagedFile) (models.User, error) {
	s.avatarUser = userID
	defer file.Discard()
	if !file.Present() {
		return models.User{}, apperror.BadRequest("avatar file is missing")
	}
	return models.User{ID: userID}, s.err
}

func (s *accountServiceStub) UpdateCoverImage(_ context.Context, userID string, file storage.StagedFile) (models.User, error) {
	defer file.Discard()
	return models.User{ID: userID}, s.err
}

type channelServiceStub struct {
	viewer     string
	username   string
	subscriber string
	channel    string
	history    []models.WatchedVideo
	err        error
}

func (s *channelServiceStub) Profile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	s.username, s.viewer = username, viewerID
	if s.err != nil {
		return models.ChannelProfile{}, s.err
	}
	return models.ChannelProfile{Username: username, SubscribersCount: 3, IsSubscribed: viewerID != ""}, nil
}

func (s *channelServiceStub) WatchHistory(_ context.Context, userID string) ([]models.WatchedVideo, error) {
	s.viewer = userID
	return s.history, s.err
}

func (s *channelServiceStub) ToggleSubscription(_ context.Context, subscriberID, channelID string) (bool, error) {
	s.subscriber, s.channel = subscriberID, channelID
	return true, s.err
}

type videoServiceStub struct {
	published  videos.PublishInput
	videoBytes []byte
	listQuery  videos.ListQuery
	updated    videos.UpdateInput
	getViewer  string
	deletedBy  string
	toggledID  string
	err        error
}

func (s *videoServiceStub) Publish(_ context.Context, in videos.PublishInput) (models.Video, error) {
	s.published = in
	if in.VideoFile.Present() {
		s.videoBytes, _ = os.ReadFile(in.VideoFile.Path)
	}
	in.VideoFile.Discard()
	in.Thumbnail.Discard()
	if s.err != nil {
		return models.Video{}, s.err
	}
	return models.Video{ID: "video-1", OwnerID: in.OwnerID, Title: in.Title, Duration: in.Duration, IsPublished: true}, nil
}

func (s *videoServiceStub) Get(_ context.Context, videoID, viewerID string) (models.VideoDetails, error) {
	s.getViewer = viewerID
	if s.err != nil {
		return models.VideoDetails{}, s.err
	}
	return models.VideoDetails{Video: models.Video{ID: videoID, Views: 1}}, nil
}

func (s *videoServiceStub) List(_ context.Context, q videos.ListQuery) (models.VideoPage, error) {
	s.listQuery = q
	if s.err != nil {
		return models.VideoPage{}, s.err
	}
	return models.VideoPage{Videos: []models.WatchedVideo{}, Page: 1, Limit: 10}, nil
}

func (s *videoServiceStub) Update(_ context.Context, in videos.UpdateInput) (models.Video, error) {
	s.updated = in
	in.Thumbnail.Discard()
	return models.Video{ID: in.VideoID, Title: in.Title}, s.err
}

func (s *videoServiceStub) Delete(_ context.Context, _, actorID string) error {
	s.deletedBy = actorID
	return s.err
}

func (s *videoServiceStub) TogglePublish(_ context.Context, videoID, _ string) (models.Video, error) {
	s.toggledID = videoID
	return models.Video{ID: videoID}, s.err
}

type testAPI struct {
	handler  http.Handler
	accounts *accountServiceStub
	channels *channelServiceStub
	videos   *videoServiceStub
	tokens   *auth.Manager
	uploads  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	manager := auth.NewManager(auth.Options{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, auth.NewMemoryTokenStore("user-1"))

	api := &testAPI{
		accounts: &accountServiceStub{tokens: models.SessionTokens{
			AccessToken:      "access-1",
			AccessExpiresAt:  time.Now().Add(time.Minute),
			RefreshToken:     "refresh-1",
			RefreshExpiresAt: time.Now().Add(time.Hour),
		}},
		channels: &channelServiceStub{},
		videos:   &videoServiceStub{},
		tokens:   manager,
		uploads:  t.TempDir(),
	}
	api.handler = NewRouter(Dependencies{
		Accounts: api.accounts,
		Channels: api.channels,
		Videos:   api.videos,
		Tokens:   manager,
		Uploads:  UploadLimits{Dir: api.uploads, MaxImageBytes: 64, MaxVideoBytes: 1024},
		Cookies:  CookieOptions{Secure: true},
	})
	return api
}

func (a *testAPI) bearer(t *testing.T) string {
	t.Helper()
	tokens, err := a.tokens.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	return "Bearer " + tokens.AccessToken
}

type decodedEnvelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, body io.Reader) decodedEnvelope {
	t.Helper()
	var env decodedEnvelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

type filePart struct {
	field    string
	filename string
	content  []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := w.Write(f.content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func stagedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
