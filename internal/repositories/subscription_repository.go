package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/models"
)

// SubscriptionRepository defines data access for subscriber -> channel edges.
type SubscriptionRepository interface {
	// Toggle removes the edge when present and creates it otherwise, reporting
	// whether the subscriber is subscribed afterwards.
	Toggle(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error)
	Subscribers(ctx context.Context, channelID uuid.UUID) (models.SubscriberList, error)
	SubscribedChannels(ctx context.Context, subscriberID uuid.UUID) (models.SubscriberList, error)
}
