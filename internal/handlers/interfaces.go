package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/media"
	"github.com/streamhub/backend/internal/models"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
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

// SessionManager issues, rotates and revokes session tokens.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, models.User, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
}

// VideoStore captures persistence for the video lifecycle.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id uuid.UUID) (models.Video, error)
	RecordView(ctx context.Context, id uuid.UUID) (models.Video, error)
	List(ctx context.Context, query models.VideoQuery) (models.VideoPage, error)
	ListUnpublished(ctx context.Context, ownerID uuid.UUID) ([]models.Video, error)
	Update(ctx context.Context, video models.Video) (models.Video, error)
	TogglePublished(ctx context.Context, id uuid.UUID) (models.Video, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubscriptionStore captures persistence for subscription edges.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error)
	Subscribers(ctx context.Context, channelID uuid.UUID) (models.SubscriberList, error)
	SubscribedChannels(ctx context.Context, subscriberID uuid.UUID) (models.SubscriberList, error)
}

// MediaService uploads and removes binary assets.
type MediaService interface {
	UploadImage(ctx context.Context, folder string, up media.Upload) (string, error)
	UploadVideo(ctx context.Context, up media.Upload) (media.VideoAsset, error)
	Discard(ctx context.Context, locations ...string)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
