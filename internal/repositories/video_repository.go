package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/models"
)

// VideoRepository exposes data access for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id uuid.UUID) (models.Video, error)
	RecordView(ctx context.Context, id uuid.UUID) (models.Video, error)
	List(ctx context.Context, query models.VideoQuery) (models.VideoPage, error)
	ListUnpublished(ctx context.Context, ownerID uuid.UUID) ([]models.Video, error)
	Update(ctx context.Context, video models.Video) (models.Video, error)
	TogglePublished(ctx context.Context, id uuid.UUID) (models.Video, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// VideoSortColumns maps the sortBy values accepted by listings to columns.
var VideoSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"views":     "views",
	"duration":  "duration",
}
