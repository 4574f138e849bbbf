package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/apperr"
	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/media"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
	"github.com/streamhub/backend/internal/response"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// HistoryRecorder appends videos to a viewer's watch history.
type HistoryRecorder interface {
	AppendWatchHistory(ctx context.Context, userID, videoID uuid.UUID) error
}

// VideoHandler provides the video lifecycle endpoints.
type VideoHandler struct {
	Videos         VideoStore
	History        HistoryRecorder
	Media          MediaService
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query, err := parseVideoQuery(r.URL.Query())
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	page, err := h.Videos.List(ctx, query)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	response.Success(ctx, w, http.StatusOK, "videos fetched successfully", page)
}

func parseVideoQuery(values url.Values) (models.VideoQuery, error) {
	query := models.VideoQuery{
		Page:     1,
		Limit:    defaultPageSize,
		Search:   strings.TrimSpace(values.Get("query")),
		SortBy:   "createdAt",
		SortType: models.SortDesc,
	}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return models.VideoQuery{}, apperr.Validation("page must be a positive integer", "page")
		}
		query.Page = page
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return models.VideoQuery{}, apperr.Validation("limit must be a positive integer", "limit")
		}
		query.Limit = min(limit, maxPageSize)
	}

	if raw := strings.TrimSpace(values.Get("sortBy")); raw != "" {
		if _, ok := repositories.VideoSortColumns[raw]; !ok {
			return models.VideoQuery{}, apperr.Validation("invalid sortBy field", "sortBy")
		}
		query.SortBy = raw
	}

	if raw := strings.TrimSpace(values.Get("sortType")); raw != "" {
		sortType := strings.ToLower(raw)
		if sortType != models.SortAsc && sortType != models.SortDesc {
			return models.VideoQuery{}, apperr.Validation("sortType must be asc or desc", "sortType")
		}
		query.SortType = sortType
	}

	if raw := strings.TrimSpace(values.Get("userId")); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			return models.VideoQuery{}, apperr.Validation("invalid userId", "userId")
		}
		query.OwnerID = ownerID
	}

	return query, nil
}

// Publish handles POST /api/v1/videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, err := currentUser(r)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	if h.Media == nil {
		response.Error(ctx, w, apperr.Internal("media unavailable", errors.New("media service missing")))
		return
	}

	if err := parseMultipart(w, r, h.MaxUploadBytes); err != nil {
		response.Error(ctx, w, err)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if err := requireFields("title", title, "description", description); err != nil {
		response.Error(ctx, w, err)
		return
	}

	published := true
	if raw := strings.TrimSpace(r.FormValue("isPublished")); raw != "" {
		published, err = strconv.ParseBool(raw)
		if err != nil {
			response.Error(ctx, w, apperr.Validation("isPublished must be a boolean", "isPublished"))
			return
		}
	}

	videoFile, videoUpload, hasVideo, err := formFile(r, "videoFile")
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	if hasVideo {
		defer videoFile.Close()
	}
	thumbFile, thumbUpload, hasThumb, err := formFile(r, "thumbnail")
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	if hasThumb {
		defer thumbFile.Close()
	}
	if !hasVideo || !hasThumb {
		response.Error(ctx, w, apperr.Validation("video file and thumbnail are required", "videoFile", "thumbnail"))
		return
	}

	asset, err := h.Media.UploadVideo(ctx, videoUpload)
	if err != nil {
		response.Error(ctx, w, apperr.Upload("failed to upload video file", err))
		return
	}

	thumbnailURL, err := h.Media.UploadImage(ctx, media.FolderThumbnails, thumbUpload)
	if err != nil {
		h.Media.Discard(ctx, asset.URL)
		response.Error(ctx, w, apperr.Upload("failed to upload thumbnail", err))
		return
	}

	now := h.now()
	video := models.Video{
		ID:          uuid.New(),
		OwnerID:     user.ID,
		Title:       title,
		Description: description,
		Duration:    asset.Duration,
		Thumbnail:   thumbnailURL,
		VideoFile:   asset.URL,
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		h.Media.Discard(ctx, asset.URL, thumbnailURL)
		response.Error(ctx, w, err)
		return
	}

	logger.Info("video published", "videoId", video.ID, "ownerId", user.ID)
	response.Success(ctx, w, http.StatusOK, "video published successfully", video)
}

// Get handles GET /api/v1/videos/{videoId}. Every fetch counts as a view and
// authenticated viewers get the video appended to their history.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID, err := pathID(r, "videoId")
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	video, err := h.Videos.RecordView(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			response.Error(ctx, w, apperr.NotFound("video not found"))
			return
		}
		response.Error(ctx, w, apperr.Internal("failed to fetch video", err))
		return
	}

	if viewer, ok := auth.UserFromContext(ctx); ok && h.History != nil {
		if err := h.History.AppendWatchHistory(ctx, viewer.ID, video.ID); err != nil {
			response.Error(ctx, w, apperr.Internal("failed to fetch video", err))
			return
		}
	}

	response.Success(ctx, w, http.StatusOK, "video fetched successfully", video)
}

// Update handles PATCH /api/v1/videos/{videoId}.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, ok := h.ownedVideo(w, r, "you are not allowed to update this video")
	if !ok {
		return
	}

	var (
		req       updateVideoRequest
		thumbnail *media.Upload
	)
	if isMultipart(r) {
		if err := parseMultipart(w, r, h.MaxUploadBytes); err != nil {
			response.Error(ctx, w, err)
			return
		}
		req.Title = formValue(r, "title")
		req.Description = formValue(r, "description")
		if raw := strings.TrimSpace(r.FormValue("isPublished")); raw != "" {
			published, err := strconv.ParseBool(raw)
			if err != nil {
				response.Error(ctx, w, apperr.Validation("isPublished must be a boolean", "isPublished"))
				return
			}
			req.IsPublished = &published
		}

		file, up, hasThumb, err := formFile(r, "thumbnail")
		if err != nil {
			response.Error(ctx, w, err)
			return
		}
		if hasThumb {
			defer file.Close()
			thumbnail = &up
		}
	} else if err := decodeJSON(r, &req); err != nil {
		response.Error(ctx, w, err)
		return
	}

	patch := models.VideoPatch{IsPublished: req.IsPublished}
	title, description := "", ""
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		patch.Title = &title
	}
	if req.Description != nil {
		description = strings.TrimSpace(*req.Description)
		patch.Description = &description
	}
	if err := requireFields("title", title, "description", description); err != nil {
		response.Error(ctx, w, err)
		return
	}

	previousThumbnail := ""
	if thumbnail != nil {
		if h.Media == nil {
			response.Error(ctx, w, apperr.Internal("media unavailable", errors.New("media service missing")))
			return
		}
		location, err := h.Media.UploadImage(ctx, media.FolderThumbnails, *thumbnail)
		if err != nil {
			response.Error(ctx, w, apperr.Upload("failed to upload thumbnail", err))
			return
		}
		patch.Thumbnail = &location
		previousThumbnail = video.Thumbnail
	}

	updated, err := h.Videos.Update(ctx, patch.Apply(video))
	if err != nil {
		if patch.Thumbnail != nil {
			h.Media.Discard(ctx, *patch.Thumbnail)
		}
		response.Error(ctx, w, storeError(err, "video not found", ""))
		return
	}

	if previousThumbnail != "" {
		h.Media.Discard(ctx, previousThumbnail)
	}

	response.Success(ctx, w, http.StatusOK, "video updated successfully", updated)
}

// Delete handles DELETE /api/v1/videos/{videoId}. Remote assets are removed
// after the record; a failed asset removal does not fail the request.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, ok := h.ownedVideo(w, r, "you are not allowed to delete this video")
	if !ok {
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		response.Error(ctx, w, storeError(err, "video not found", ""))
		return
	}

	if h.Media != nil {
		h.Media.Discard(ctx, video.Thumbnail, video.VideoFile)
	}

	logging.FromContext(ctx).Info("video deleted", "videoId", video.ID)
	response.Success(ctx, w, http.StatusOK, "video deleted successfully", struct{}{})
}

// TogglePublish handles PATCH /api/v1/videos/{videoId}/toggle-publish.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, ok := h.ownedVideo(w, r, "you are not allowed to change this video")
	if !ok {
		return
	}

	toggled, err := h.Videos.TogglePublished(ctx, video.ID)
	if err != nil {
		response.Error(ctx, w, storeError(err, "video not found", ""))
		return
	}

	response.Success(ctx, w, http.StatusOK, "publish status toggled successfully", toggled)
}

// ListUnpublished handles GET /api/v1/videos/unpublished.
func (h VideoHandler) ListUnpublished(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	videos, err := h.Videos.ListUnpublished(ctx, user.ID)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	response.Success(ctx, w, http.StatusOK, "unpublished videos fetched successfully", videos)
}

// ownedVideo loads the addressed video and checks the caller owns it. It
// writes the error response itself and reports false on failure.
func (h VideoHandler) ownedVideo(w http.ResponseWriter, r *http.Request, forbidden string) (models.Video, bool) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		response.Error(ctx, w, err)
		return models.Video{}, false
	}

	videoID, err := pathID(r, "videoId")
	if err != nil {
		response.Error(ctx, w, err)
		return models.Video{}, false
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		response.Error(ctx, w, storeError(err, "video not found", ""))
		return models.Video{}, false
	}

	if !video.OwnedBy(user.ID) {
		response.Error(ctx, w, apperr.Forbidden(forbidden))
		return models.Video{}, false
	}

	return video, true
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"isPublished"`
}

func formValue(r *http.Request, field string) *string {
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
