package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SwapAvatar(ctx context.Context, id string, ref models.MediaRef) (models.MediaRef, error)
	SwapCoverImage(ctx context.Context, id string, ref models.MediaRef) (models.MediaRef, error)
	PrependWatchHistory(ctx context.Context, userID, videoID string) error
}
