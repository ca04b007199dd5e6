// Package videos implements publishing, browsing and maintenance of videos.
package videos

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

var sortFields = map[string]bool{"createdAt": true, "views": true, "duration": true, "title": true}

// Media hosts and removes video files and thumbnails.
type Media interface {
	Store(ctx context.Context, localPath, contentType string, kind storage.Kind) (models.MediaRef, error)
	DeleteQuietly(ctx context.Context, ref models.MediaRef, kind storage.Kind)
}

// WatchHistory records what a viewer watched.
type WatchHistory interface {
	PrependWatchHistory(ctx context.Context, userID, videoID string) error
}

// PublishInput carries a new upload.
type PublishInput struct {
	OwnerID     string
	Title       string
	Description string
	Duration    float64
	VideoFile   storage.StagedFile
	Thumbnail   storage.StagedFile
}

// ListQuery selects a page of published videos.
type ListQuery struct {
	Page     int
	Limit    int
	Query    string
	SortBy   string
	SortType string
	UserID   string
}

// UpdateInput changes a video's details. Thumbnail is optional.
type UpdateInput struct {
	VideoID     string
	ActorID     string
	Title       string
	Description string
	Thumbnail   storage.StagedFile
}

// Service coordinates video records and their media.
type Service struct {
	videos        repositories.VideoRepository
	history       WatchHistory
	media         Media
	maxVideoBytes int64
	now           func() time.Time
}

// NewService constructs the video service. maxVideoBytes <= 0 disables the size check.
func NewService(videos repositories.VideoRepository, history WatchHistory, media Media, maxVideoBytes int64) *Service {
	return &Service{videos: videos, history: history, media: media, maxVideoBytes: maxVideoBytes, now: time.Now}
}

// Publish uploads the video file and thumbnail concurrently and stores the
// record. A failed upload leaves no hosted asset behind.
func (s *Service) Publish(ctx context.Context, in PublishInput) (video models.Video, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.publish")
	defer func() { span.End(err) }()
	defer in.VideoFile.Discard()
	defer in.Thumbnail.Discard()

	if in.OwnerID == "" {
		return models.Video{}, apperror.Unauthorized("unauthorized request")
	}
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return models.Video{}, apperror.BadRequest("title and description are required")
	}
	if !in.VideoFile.Present() {
		return models.Video{}, apperror.BadRequest("video file is required")
	}
	if s.maxVideoBytes > 0 && in.VideoFile.Size > s.maxVideoBytes {
		return models.Video{}, apperror.BadRequest("video file exceeds size limit")
	}
	if !in.Thumbnail.Present() {
		return models.Video{}, apperror.BadRequest("thumbnail is required")
	}
	if in.Duration < 0 || math.IsNaN(in.Duration) || math.IsInf(in.Duration, 0) {
		return models.Video{}, apperror.BadRequest("duration must be a non-negative number")
	}

	var videoRef, thumbRef models.MediaRef
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ref, err := s.media.Store(gctx, in.VideoFile.Path, in.VideoFile.ContentType, storage.KindVideo)
		videoRef = ref
		return err
	})
	g.Go(func() error {
		ref, err := s.media.Store(gctx, in.Thumbnail.Path, in.Thumbnail.ContentType, storage.KindImage)
		thumbRef = ref
		return err
	})
	if err := g.Wait(); err != nil {
		s.media.DeleteQuietly(ctx, videoRef, storage.KindVideo)
		s.media.DeleteQuietly(ctx, thumbRef, storage.KindImage)
		return models.Video{}, apperror.Wrap(apperror.KindBadRequest, "error while uploading media", err)
	}

	now := s.now().UTC()
	video = models.Video{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		VideoFile:   videoRef,
		Thumbnail:   thumbRef,
		Title:       title,
		Description: description,
		Duration:    in.Duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.videos.Create(ctx, video); err != nil {
		s.media.DeleteQuietly(ctx, videoRef, storage.KindVideo)
		s.media.DeleteQuietly(ctx, thumbRef, storage.KindImage)
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperror.NotFound("owner not found")
		}
		return models.Video{}, apperror.Internal("failed to save video", err)
	}

	return video, nil
}

// Get returns the denormalized view of a video, counts one view and records
// it in the viewer's history. Unpublished videos are only visible to their owner.
func (s *Service) Get(ctx context.Context, videoID, viewerID string) (details models.VideoDetails, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.get")
	defer func() { span.End(err) }()

	videoID, err = parseVideoID(videoID)
	if err != nil {
		return models.VideoDetails{}, err
	}

	details, err = s.videos.Details(ctx, videoID, viewerID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return models.VideoDetails{}, apperror.NotFound("video not found")
	case err != nil:
		return models.VideoDetails{}, apperror.Internal("failed to load video", err)
	}
	if !details.Video.IsPublished && details.Video.OwnerID != viewerID {
		return models.VideoDetails{}, apperror.NotFound("video not found")
	}

	views, err := s.videos.IncrementViews(ctx, videoID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return models.VideoDetails{}, apperror.NotFound("video not found")
	case err != nil:
		return models.VideoDetails{}, apperror.Internal("failed to record view", err)
	}
	details.Video.Views = views

	if viewerID != "" {
		if err := s.history.PrependWatchHistory(ctx, viewerID, videoID); err != nil {
			if !errors.Is(err, repositories.ErrNotFound) {
				return models.VideoDetails{}, apperror.Internal("failed to update watch history", err)
			}
			logging.FromContext(ctx).Warn("viewer vanished before history update", slog.String("viewer", viewerID))
		}
	}

	return details, nil
}

// List returns one page of published videos.
func (s *Service) List(ctx context.Context, q ListQuery) (page models.VideoPage, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.list")
	defer func() { span.End(err) }()

	if q.Page == 0 {
		q.Page = defaultPage
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Page < 1 {
		return models.VideoPage{}, apperror.BadRequest("page must be a positive number")
	}
	if q.Limit < 1 || q.Limit > maxLimit {
		return models.VideoPage{}, apperror.BadRequest("limit must be between 1 and 100")
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return models.VideoPage{}, apperror.BadRequest("page is out of range")
	}
	if q.SortBy != "" && !sortFields[q.SortBy] {
		return models.VideoPage{}, apperror.BadRequest("unsupported sortBy field")
	}

	sortDesc := true
	switch strings.ToLower(q.SortType) {
	case "", "desc":
	case "asc":
		sortDesc = false
	default:
		return models.VideoPage{}, apperror.BadRequest("sortType must be asc or desc")
	}

	ownerID := strings.TrimSpace(q.UserID)
	if ownerID != "" {
		if _, perr := uuid.Parse(ownerID); perr != nil {
			return models.VideoPage{}, apperror.BadRequest("invalid user id")
		}
	}

	videos, total, err := s.videos.Search(ctx, repositories.VideoSearch{
		Query:    strings.TrimSpace(q.Query),
		OwnerID:  ownerID,
		SortBy:   q.SortBy,
		SortDesc: sortDesc,
		Limit:    q.Limit,
		Offset:   (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return models.VideoPage{}, apperror.Internal("failed to list videos", err)
	}
	if videos == nil {
		videos = []models.WatchedVideo{}
	}

	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return models.VideoPage{
		Videos:      videos,
		TotalDocs:   total,
		Page:        q.Page,
		Limit:       q.Limit,
		TotalPages:  totalPages,
		HasNextPage: q.Page < totalPages,
	}, nil
}

// Update changes title and description and optionally replaces the thumbnail.
// The old thumbnail is deleted only after the record points at the new one.
func (s *Service) Update(ctx context.Context, in UpdateInput) (video models.Video, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.update")
	defer func() { span.End(err) }()
	defer in.Thumbnail.Discard()

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return models.Video{}, apperror.BadRequest("title and description are required")
	}

	current, err := s.ownedVideo(ctx, in.VideoID, in.ActorID)
	if err != nil {
		return models.Video{}, err
	}

	update := repositories.VideoUpdate{ID: current.ID, Title: title, Description: description}
	var uploaded models.MediaRef
	if in.Thumbnail.Present() {
		uploaded, err = s.media.Store(ctx, in.Thumbnail.Path, in.Thumbnail.ContentType, storage.KindImage)
		if err != nil {
			return models.Video{}, apperror.Wrap(apperror.KindBadRequest, "error while uploading thumbnail", err)
		}
		update.Thumbnail = &uploaded
	}

	video, replaced, err := s.videos.Update(ctx, update)
	if err != nil {
		s.media.DeleteQuietly(ctx, uploaded, storage.KindImage)
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperror.NotFound("video not found")
		}
		return models.Video{}, apperror.Internal("failed to update video", err)
	}
	if replaced.ProviderID != "" && replaced.ProviderID != uploaded.ProviderID {
		s.media.DeleteQuietly(ctx, replaced, storage.KindImage)
	}

	return video, nil
}

// Delete removes the video, strips it from watch histories and then deletes its media.
func (s *Service) Delete(ctx context.Context, videoID, actorID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "videos.delete")
	defer func() { span.End(err) }()

	current, err := s.ownedVideo(ctx, videoID, actorID)
	if err != nil {
		return err
	}

	deleted, err := s.videos.Delete(ctx, current.ID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return apperror.NotFound("video not found")
	case err != nil:
		return apperror.Internal("failed to delete video", err)
	}

	s.media.DeleteQuietly(ctx, deleted.VideoFile, storage.KindVideo)
	s.media.DeleteQuietly(ctx, deleted.Thumbnail, storage.KindImage)
	return nil
}

// TogglePublish flips the publication state of a video owned by actorID.
func (s *Service) TogglePublish(ctx context.Context, videoID, actorID string) (video models.Video, err error) {
	ctx, span := logging.StartSpan(ctx, "videos.toggle_publish")
	defer func() { span.End(err) }()

	current, err := s.ownedVideo(ctx, videoID, actorID)
	if err != nil {
		return models.Video{}, err
	}

	video, err = s.videos.TogglePublish(ctx, current.ID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return models.Video{}, apperror.NotFound("video not found")
	case err != nil:
		return models.Video{}, apperror.Internal("failed to toggle publish status", err)
	}
	return video, nil
}

func (s *Service) ownedVideo(ctx context.Context, videoID, actorID string) (models.Video, error) {
	if actorID == "" {
		return models.Video{}, apperror.Unauthorized("unauthorized request")
	}
	videoID, err := parseVideoID(videoID)
	if err != nil {
		return models.Video{}, err
	}

	video, err := s.videos.FindByID(ctx, videoID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return models.Video{}, apperror.NotFound("video not found")
	case err != nil:
		return models.Video{}, apperror.Internal("failed to load video", err)
	}
	if video.OwnerID != actorID {
		return models.Video{}, apperror.Unauthorized("only the owner can modify this video")
	}
	return video, nil
}

func parseVideoID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperror.BadRequest("invalid video id")
	}
	return id.String(), nil
}
