package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/models"
)

// UserRepository defines the data access contract for users and their channel views.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateAccount(ctx context.Context, id uuid.UUID, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id uuid.UUID, coverURL string) (models.User, error)
	ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (models.ChannelProfile, error)
	AppendWatchHistory(ctx context.Context, userID, videoID uuid.UUID) error
	WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error)
}
