package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account (and channel) on the platform. Password holds the
// bcrypt hash and RefreshToken the single active refresh token; neither is ever
// serialised.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage,omitempty"`
	Password     string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Video is an uploaded video owned by a user.
type Video struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Thumbnail   string    `json:"thumbnail"`
	VideoFile   string    `json:"videoFile"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OwnedBy reports whether the video belongs to the given user.
func (v Video) OwnedBy(userID uuid.UUID) bool {
	return v.OwnerID != uuid.Nil && v.OwnerID == userID
}

// VideoPatch carries the optional fields of a video update. A nil field is
// absent and leaves the stored value untouched.
type VideoPatch struct {
	Title       *string
	Description *string
	Thumbnail   *string
	IsPublished *bool
}

// Apply merges the present fields of the patch into v.
func (p VideoPatch) Apply(v Video) Video {
	if p.Title != nil {
		v.Title = *p.Title
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.Thumbnail != nil {
		v.Thumbnail = *p.Thumbnail
	}
	if p.IsPublished != nil {
		v.IsPublished = *p.IsPublished
	}
	return v
}

// Empty reports whether the patch carries no fields.
func (p VideoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Thumbnail == nil && p.IsPublished == nil
}

// Subscription is a directed edge from a subscriber to a channel.
type Subscription struct {
	ID           uuid.UUID `json:"id"`
	SubscriberID uuid.UUID `json:"subscriber"`
	ChannelID    uuid.UUID `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicProfile is the subset of a user that may be shown to anyone.
type PublicProfile struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email,omitempty"`
	Avatar   string    `json:"avatar,omitempty"`
}

// SubscriberList is the result of a subscriber or subscription listing.
type SubscriberList struct {
	Count int             `json:"count"`
	Users []PublicProfile `json:"users"`
}

// ChannelProfile is a user's public channel page with subscription counts.
type ChannelProfile struct {
	ID                        uuid.UUID `json:"id"`
	Username                  string    `json:"username"`
	FullName                  string    `json:"fullName"`
	Email                     string    `json:"email"`
	Avatar                    string    `json:"avatar"`
	CoverImage                string    `json:"coverImage,omitempty"`
	SubscribersCount          int64     `json:"subscribersCount"`
	ChannelsSubscribedToCount int64     `json:"channelsSubscribedToCount"`
	IsSubscribed              bool      `json:"isSubscribed"`
	CreatedAt                 time.Time `json:"createdAt"`
}

// WatchedVideo is a watch-history entry resolved to its video and owner.
type WatchedVideo struct {
	Video
	Owner     PublicProfile `json:"owner"`
	WatchedAt time.Time     `json:"watchedAt"`
}

// Sort directions accepted by video listings.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// VideoQuery describes a paginated, filtered video listing.
type VideoQuery struct {
	Page     int
	Limit    int
	Search   string
	OwnerID  uuid.UUID
	SortBy   string
	SortType string
}

// VideoPage is one page of a video listing.
type VideoPage struct {
	Videos      []Video `json:"videos"`
	TotalDocs   int64   `json:"totalDocs"`
	Limit       int     `json:"limit"`
	Page        int     `json:"page"`
	TotalPages  int     `json:"totalPages"`
	HasNextPage bool    `json:"hasNextPage"`
	HasPrevPage bool    `json:"hasPrevPage"`
}

// NewVideoPage computes the paging metadata for a listing.
func NewVideoPage(videos []Video, total int64, page, limit int) VideoPage {
	if videos == nil {
		videos = []Video{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return VideoPage{
		Videos:      videos,
		TotalDocs:   total,
		Limit:       limit,
		Page:        page,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
