package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/models"
)

func TestUserHandlerCurrentUser(t *testing.T) {
	user := newUser("ivan")
	handler := UserHandler{Users: newInMemoryUserStore(user)}

	rec := httptest.NewRecorder()
	handler.CurrentUser(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), user))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var got models.User
	decodeData(t, rec, &got)
	if got.ID != user.ID || got.Username != "ivan" {
		t.Fatalf("unexpected user %+v", got)
	}

	rec = httptest.NewRecorder()
	handler.CurrentUser(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestUserHandlerUpdateAccount(t *testing.T) {
	user := newUser("judy")
	other := newUser("mallory")
	users := newInMemoryUserStore(user, other)
	handler := UserHandler{Users: users}

	rec := httptest.NewRecorder()
	req := asUser(jsonRequest(t, http.MethodPatch, "/api/v1/users/update-account", updateAccountRequest{
		FullName: "Judy Hopps",
		Email:    "JUDY@zootopia.example",
	}), user)
	handler.UpdateAccount(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var updated models.User
	decodeData(t, rec, &updated)
	if updated.FullName != "Judy Hopps" || updated.Email != "judy@zootopia.example" {
		t.Fatalf("unexpected update %+v", updated)
	}

	rec = httptest.NewRecorder()
	req = asUser(jsonRequest(t, http.MethodPatch, "/api/v1/users/update-account", updateAccountRequest{
		FullName: "Judy",
		Email:    other.Email,
	}), user)
	handler.UpdateAccount(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected conflict to be rejected got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Message != "email is already in use" {
		t.Fatalf("unexpected message %q", got.Message)
	}

	rec = httptest.NewRecorder()
	req = asUser(jsonRequest(t, http.MethodPatch, "/api/v1/users/update-account", updateAccountRequest{FullName: "Judy"}), user)
	handler.UpdateAccount(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUserHandlerUpdateAvatarDiscardsPrevious(t *testing.T) {
	user := newUser("kim")
	users := newInMemoryUserStore(user)
	files := newFakeMedia()
	handler := UserHandler{Users: users, Media: files, DefaultCoverURL: defaultCover}

	rec := httptest.NewRecorder()
	req := asUser(multipartRequest(t, http.MethodPatch, "/api/v1/users/avatar", nil, map[string]string{"avatar": "new"}), user)
	handler.UpdateAvatar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var updated models.User
	decodeData(t, rec, &updated)
	if updated.Avatar == user.Avatar || updated.Avatar == "" {
		t.Fatalf("expected a new avatar, got %q", updated.Avatar)
	}
	if got := files.discardedLocations(); len(got) != 1 || got[0] != user.Avatar {
		t.Fatalf("expected previous avatar to be discarded, got %v", got)
	}
}

func TestUserHandlerUpdateCoverKeepsDefault(t *testing.T) {
	user := newUser("lena")
	user.CoverImage = defaultCover
	files := newFakeMedia()
	handler := UserHandler{Users: newInMemoryUserStore(user), Media: files, DefaultCoverURL: defaultCover}

	rec := httptest.NewRecorder()
	req := asUser(multipartRequest(t, http.MethodPatch, "/api/v1/users/cover-image", nil, map[string]string{"coverImage": "new"}), user)
	handler.UpdateCoverImage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if got := files.discardedLocations(); len(got) != 0 {
		t.Fatalf("default cover must not be discarded, got %v", got)
	}

	rec = httptest.NewRecorder()
	req = asUser(multipartRequest(t, http.MethodPatch, "/api/v1/users/cover-image", map[string]string{"x": "y"}, nil), user)
	handler.UpdateCoverImage(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected missing file to be rejected, got %d", rec.Code)
	}
}

func TestUserHandlerChannelProfile(t *testing.T) {
	channel := newUser("nina")
	viewer := newUser("oscar")
	users := newInMemoryUserStore(channel, viewer)
	subs := &inMemorySubscriptionStore{users: users}
	users.subs = subs
	if _, err := subs.Toggle(context.Background(), viewer.ID, channel.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	handler := UserHandler{Users: users}

	tests := []struct {
		name       string
		viewer     *models.User
		subscribed bool
	}{
		{name: "anonymous", subscribed: false},
		{name: "subscriber", viewer: &viewer, subscribed: true},
		{name: "owner", viewer: &channel, subscribed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/channel/NINA", nil)
			req.SetPathValue("username", "NINA")
			if tt.viewer != nil {
				req = asUser(req, *tt.viewer)
			}
			rec := httptest.NewRecorder()
			handler.ChannelProfile(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200 got %d", rec.Code)
			}
			var profile models.ChannelProfile
			decodeData(t, rec, &profile)
			if profile.SubscribersCount != 1 || profile.ChannelsSubscribedToCount != 0 {
				t.Fatalf("unexpected counts %+v", profile)
			}
			if profile.IsSubscribed != tt.subscribed {
				t.Fatalf("expected isSubscribed=%v", tt.subscribed)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/channel/ghost", nil)
	req.SetPathValue("username", "ghost")
	rec := httptest.NewRecorder()
	handler.ChannelProfile(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Message != "channel does not exist" {
		t.Fatalf("unexpected message %q", got.Message)
	}
}

func TestUserHandlerWatchHistory(t *testing.T) {
	owner := newUser("peggy")
	viewer := newUser("quinn")
	video := models.Video{ID: uuid.New(), OwnerID: owner.ID, Title: "Intro", IsPublished: true}
	videos := newInMemoryVideoStore(video)
	users := newInMemoryUserStore(owner, viewer)
	users.videos = videos
	handler := UserHandler{Users: users}

	rec := httptest.NewRecorder()
	handler.WatchHistory(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil), viewer))
	var empty []models.WatchedVideo
	decodeData(t, rec, &empty)
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected an empty list, got %v", empty)
	}

	if err := users.AppendWatchHistory(context.Background(), viewer.ID, video.ID); err != nil {
		t.Fatalf("append history: %v", err)
	}

	rec = httptest.NewRecorder()
	handler.WatchHistory(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil), viewer))
	var history []models.WatchedVideo
	decodeData(t, rec, &history)
	if len(history) != 1 || history[0].ID != video.ID || history[0].Owner.Username != "peggy" {
		t.Fatalf("unexpected history %+v", history)
	}
}
