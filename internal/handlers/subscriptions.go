package handlers

import (
	"net/http"

	"github.com/streamhub/backend/internal/apperr"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/response"
)

// SubscriptionHandler serves the subscription graph endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
}

// Toggle handles POST /api/v1/subscriptions/{channelId}/toggle.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	channelID, err := pathID(r, "channelId")
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	if channelID == user.ID {
		response.Error(ctx, w, apperr.Validation("you cannot subscribe to your own channel", "channelId"))
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, user.ID, channelID)
	if err != nil {
		response.Error(ctx, w, storeError(err, "channel not found", ""))
		return
	}

	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	response.Success(ctx, w, http.StatusOK, message, toggleResponse{Subscribed: subscribed})
}

// Lookup dispatches GET /api/v1/subscriptions/{segment}/{tail}. The two
// listings share a shape that the mux cannot tell apart:
// /subscriptions/{channelId}/subscribers and /subscriptions/subscriber/{subscriberId}.
func (h SubscriptionHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.PathValue("segment") == "subscriber":
		r.SetPathValue("subscriberId", r.PathValue("tail"))
		h.SubscribedChannels(w, r)
	case r.PathValue("tail") == "subscribers":
		r.SetPathValue("channelId", r.PathValue("segment"))
		h.Subscribers(w, r)
	default:
		response.Error(r.Context(), w, apperr.NotFound("route not found"))
	}
}

// Subscribers lists the users subscribed to a channel.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID, err := pathID(r, "channelId")
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	list, err := h.Subscriptions.Subscribers(ctx, channelID)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	response.Success(ctx, w, http.StatusOK, "subscribers fetched successfully", subscribersResponse{
		Count:       list.Count,
		Subscribers: nonNil(list.Users),
	})
}

// SubscribedChannels lists the channels a user subscribes to.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscriberID, err := pathID(r, "subscriberId")
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	list, err := h.Subscriptions.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	response.Success(ctx, w, http.StatusOK, "subscribed channels fetched successfully", channelsResponse{
		Count:    list.Count,
		Channels: nonNil(list.Users),
	})
}

type toggleResponse struct {
	Subscribed bool `json:"subscribed"`
}

type subscribersResponse struct {
	Count       int                    `json:"count"`
	Subscribers []models.PublicProfile `json:"subscribers"`
}

type channelsResponse struct {
	Count    int                    `json:"count"`
	Channels []models.PublicProfile `json:"channels"`
}

func nonNil(users []models.PublicProfile) []models.PublicProfile {
	if users == nil {
		return []models.PublicProfile{}
	}
	return users
}
