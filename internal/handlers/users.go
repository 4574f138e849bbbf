package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/apperr"
	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/media"
	"github.com/streamhub/backend/internal/response"
)

// UserHandler serves account and channel endpoints.
type UserHandler struct {
	Users           UserStore
	Media           MediaService
	MaxUploadBytes  int64
	DefaultCoverURL string
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	response.Success(ctx, w, http.StatusOK, "current user fetched successfully", user)
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(ctx, w, err)
		return
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := requireFields("fullName", fullName, "email", email); err != nil {
		response.Error(ctx, w, err)
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		response.Error(ctx, w, apperr.Validation("invalid email address", "email"))
		return
	}

	updated, err := h.Users.UpdateAccount(ctx, user.ID, fullName, email)
	if err != nil {
		response.Error(ctx, w, storeError(err, "user does not exist", "email is already in use"))
		return
	}

	response.Success(ctx, w, http.StatusOK, "account details updated successfully", updated)
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", media.FolderAvatars)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", media.FolderCovers)
}

func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field, folder string) {
	ctx := r.Context()

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

	file, up, ok, err := formFile(r, field)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	if !ok {
		response.Error(ctx, w, apperr.Validation(field+" file is missing", field))
		return
	}
	defer file.Close()

	url, err := h.Media.UploadImage(ctx, folder, up)
	if err != nil {
		response.Error(ctx, w, apperr.Upload("failed to upload "+field, err))
		return
	}

	previous := user.Avatar
	update := h.Users.UpdateAvatar
	if field == "coverImage" {
		previous = user.CoverImage
		update = h.Users.UpdateCoverImage
	}

	updated, err := update(ctx, user.ID, url)
	if err != nil {
		h.Media.Discard(ctx, url)
		response.Error(ctx, w, storeError(err, "user does not exist", ""))
		return
	}

	if previous != "" && previous != h.DefaultCoverURL {
		h.Media.Discard(ctx, previous)
	}

	response.Success(ctx, w, http.StatusOK, field+" updated successfully", updated)
}

// ChannelProfile handles GET /api/v1/users/channel/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		response.Error(ctx, w, apperr.Validation("username is missing", "username"))
		return
	}

	viewerID := uuid.Nil
	if viewer, ok := auth.UserFromContext(ctx); ok {
		viewerID = viewer.ID
	}

	profile, err := h.Users.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		response.Error(ctx, w, storeError(err, "channel does not exist", ""))
		return
	}

	response.Success(ctx, w, http.StatusOK, "user channel fetched successfully", profile)
}

// WatchHistory handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	history, err := h.Users.WatchHistory(ctx, user.ID)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	response.Success(ctx, w, http.StatusOK, "watch history fetched successfully", history)
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
