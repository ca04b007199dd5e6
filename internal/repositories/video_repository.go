package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// VideoSearch selects one page of published videos.
type VideoSearch struct {
	Query    string
	OwnerID  string
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// VideoUpdate carries the mutable fields of a video. A nil Thumbnail keeps the current one.
type VideoUpdate struct {
	ID          string
	Title       string
	Description string
	Thumbnail   *models.MediaRef
}

// VideoRepository exposes data access for videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	IncrementViews(ctx context.Context, id string) (int64, error)
	Details(ctx context.Context, id, viewerID string) (models.VideoDetails, error)
	Search(ctx context.Context, search VideoSearch) ([]models.WatchedVideo, int64, error)
	Update(ctx context.Context, update VideoUpdate) (models.Video, models.MediaRef, error)
	Delete(ctx context.Context, id string) (models.Video, error)
	TogglePublish(ctx context.Context, id string) (models.Video, error)
}
