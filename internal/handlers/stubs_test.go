package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/media"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
	"github.com/streamhub/backend/internal/response"
)

type inMemoryUserStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]models.User
	history map[uuid.UUID][]uuid.UUID
	videos  *inMemoryVideoStore
	subs    *inMemorySubscriptionStore

	createErr error
}

func newInMemoryUserStore(users ...models.User) *inMemoryUserStore {
	store := &inMemoryUserStore{
		users:   make(map[uuid.UUID]models.User),
		history: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, user := range users {
		store.users[user.ID] = user
	}
	return store
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id uuid.UUID) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *inMemoryUserStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	_, err := s.mutate(id, func(u *models.User) error {
		u.Password = passwordHash
		return nil
	})
	return err
}

func (s *inMemoryUserStore) UpdateAccount(_ context.Context, id uuid.UUID, fullName, email string) (models.User, error) {
	return s.mutate(id, func(u *models.User) error {
		for otherID, other := range s.users {
			if otherID != id && other.Email == email {
				return repositories.ErrConflict
			}
		}
		u.FullName = fullName
		u.Email = email
		return nil
	})
}

func (s *inMemoryUserStore) UpdateAvatar(_ context.Context, id uuid.UUID, avatarURL string) (models.User, error) {
	return s.mutate(id, func(u *models.User) error {
		u.Avatar = avatarURL
		return nil
	})
}

func (s *inMemoryUserStore) UpdateCoverImage(_ context.Context, id uuid.UUID, coverURL string) (models.User, error) {
	return s.mutate(id, func(u *models.User) error {
		u.CoverImage = coverURL
		return nil
	})
}

func (s *inMemoryUserStore) mutate(id uuid.UUID, fn func(*models.User) error) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	if err := fn(&user); err != nil {
		return models.User{}, err
	}
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) ChannelProfile(_ context.Context, username string, viewerID uuid.UUID) (models.ChannelProfile, error) {
	s.mu.Lock()
	var (
		channel models.User
		found   bool
	)
	for _, user := range s.users {
		if user.Username == username {
			channel, found = user, true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return models.ChannelProfile{}, repositories.ErrNotFound
	}

	profile := models.ChannelProfile{
		ID:         channel.ID,
		Username:   channel.Username,
		FullName:   channel.FullName,
		Email:      channel.Email,
		Avatar:     channel.Avatar,
		CoverImage: channel.CoverImage,
		CreatedAt:  channel.CreatedAt,
	}
	if s.subs != nil {
		profile.SubscribersCount = int64(s.subs.count(func(e subscriptionEdge) bool { return e.channel == channel.ID }))
		profile.ChannelsSubscribedToCount = int64(s.subs.count(func(e subscriptionEdge) bool { return e.subscriber == channel.ID }))
		if viewerID != uuid.Nil {
			profile.IsSubscribed = s.subs.count(func(e subscriptionEdge) bool {
				return e.channel == channel.ID && e.subscriber == viewerID
			}) > 0
		}
	}
	return profile, nil
}

func (s *inMemoryUserStore) AppendWatchHistory(_ context.Context, userID, videoID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return repositories.ErrNotFound
	}
	for _, existing := range s.history[userID] {
		if existing == videoID {
			return nil
		}
	}
	s.history[userID] = append(s.history[userID], videoID)
	return nil
}

func (s *inMemoryUserStore) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	s.mu.Lock()
	ids := append([]uuid.UUID(nil), s.history[userID]...)
	s.mu.Unlock()

	watched := []models.WatchedVideo{}
	for _, id := range ids {
		if s.videos == nil {
			break
		}
		video, err := s.videos.FindByID(ctx, id)
		if err != nil {
			continue
		}
		owner, _ := s.FindByID(ctx, video.OwnerID)
		watched = append(watched, models.WatchedVideo{
			Video: video,
			Owner: models.PublicProfile{ID: owner.ID, Username: owner.Username, FullName: owner.FullName, Avatar: owner.Avatar},
		})
	}
	return watched, nil
}

type inMemoryVideoStore struct {
	mu     sync.Mutex
	videos map[uuid.UUID]models.Video

	lastQuery models.VideoQuery
	viewErr   error
}

func newInMemoryVideoStore(videos ...models.Video) *inMemoryVideoStore {
	store := &inMemoryVideoStore{videos: make(map[uuid.UUID]models.Video)}
	for _, video := range videos {
		store.videos[video.ID] = video
	}
	return store
}

func (s *inMemoryVideoStore) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return nil
}

func (s *inMemoryVideoStore) FindByID(_ context.Context, id uuid.UUID) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *inMemoryVideoStore) RecordView(_ context.Context, id uuid.UUID) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewErr != nil {
		return models.Video{}, s.viewErr
	}
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideoStore) List(_ context.Context, query models.VideoQuery) (models.VideoPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = query

	var matched []models.Video
	for _, video := range s.videos {
		if !video.IsPublished {
			continue
		}
		if query.OwnerID != uuid.Nil && video.OwnerID != query.OwnerID {
			continue
		}
		if query.Search != "" && !strings.Contains(strings.ToLower(video.Title+" "+video.Description), strings.ToLower(query.Search)) {
			continue
		}
		matched = append(matched, video)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	start := min((query.Page-1)*query.Limit, len(matched))
	end := min(start+query.Limit, len(matched))
	return models.NewVideoPage(matched[start:end], int64(len(matched)), query.Page, query.Limit), nil
}

func (s *inMemoryVideoStore) ListUnpublished(_ context.Context, ownerID uuid.UUID) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	videos := []models.Video{}
	for _, video := range s.videos {
		if video.OwnerID == ownerID && !video.IsPublished {
			videos = append(videos, video)
		}
	}
	return videos, nil
}

func (s *inMemoryVideoStore) Update(_ context.Context, video models.Video) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[video.ID]; !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	s.videos[video.ID] = video
	return video, nil
}

func (s *inMemoryVideoStore) TogglePublished(_ context.Context, id uuid.UUID) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideoStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

type subscriptionEdge struct {
	subscriber uuid.UUID
	channel    uuid.UUID
}

type inMemorySubscriptionStore struct {
	mu    sync.Mutex
	users *inMemoryUserStore
	edges []subscriptionEdge
}

func (s *inMemorySubscriptionStore) Toggle(ctx context.Context, subscriberID, channelID uuid.UUID) (bool, error) {
	if _, err := s.users.FindByID(ctx, channelID); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, edge := range s.edges {
		if edge.subscriber == subscriberID && edge.channel == channelID {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return false, nil
		}
	}
	s.edges = append(s.edges, subscriptionEdge{subscriber: subscriberID, channel: channelID})
	return true, nil
}

func (s *inMemorySubscriptionStore) Subscribers(ctx context.Context, channelID uuid.UUID) (models.SubscriberList, error) {
	return s.list(ctx, func(e subscriptionEdge) (uuid.UUID, bool) { return e.subscriber, e.channel == channelID })
}

func (s *inMemorySubscriptionStore) SubscribedChannels(ctx context.Context, subscriberID uuid.UUID) (models.SubscriberList, error) {
	return s.list(ctx, func(e subscriptionEdge) (uuid.UUID, bool) { return e.channel, e.subscriber == subscriberID })
}

func (s *inMemorySubscriptionStore) list(ctx context.Context, pick func(subscriptionEdge) (uuid.UUID, bool)) (models.SubscriberList, error) {
	s.mu.Lock()
	var ids []uuid.UUID
	for _, edge := range s.edges {
		if id, ok := pick(edge); ok {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	list := models.SubscriberList{Users: []models.PublicProfile{}}
	for _, id := range ids {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			continue
		}
		list.Users = append(list.Users, models.PublicProfile{
			ID: user.ID, Username: user.Username, FullName: user.FullName, Email: user.Email, Avatar: user.Avatar,
		})
	}
	list.Count = len(list.Users)
	return list, nil
}

func (s *inMemorySubscriptionStore) count(match func(subscriptionEdge) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, edge := range s.edges {
		if match(edge) {
			n++
		}
	}
	return n
}

type fakeMedia struct {
	mu        sync.Mutex
	uploads   map[string]int
	discarded []string
	imageErr  error
	videoErr  error
	duration  float64
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{uploads: make(map[string]int), duration: 42.5}
}

func (m *fakeMedia) UploadImage(_ context.Context, folder string, up media.Upload) (string, error) {
	if m.imageErr != nil {
		return "", m.imageErr
	}
	if _, err := io.Copy(io.Discard, up.Reader); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[folder]++
	return fmt.Sprintf("https://cdn.example.com/%s/%d-%s", folder, m.uploads[folder], up.Filename), nil
}

func (m *fakeMedia) UploadVideo(_ context.Context, up media.Upload) (media.VideoAsset, error) {
	if m.videoErr != nil {
		return media.VideoAsset{}, m.videoErr
	}
	if _, err := io.Copy(io.Discard, up.Reader); err != nil {
		return media.VideoAsset{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[media.FolderVideos]++
	return media.VideoAsset{
		URL:      fmt.Sprintf("https://cdn.example.com/%s/%d-%s", media.FolderVideos, m.uploads[media.FolderVideos], up.Filename),
		Duration: m.duration,
	}, nil
}

func (m *fakeMedia) Discard(_ context.Context, locations ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, location := range locations {
		if location != "" {
			m.discarded = append(m.discarded, location)
		}
	}
}

func (m *fakeMedia) discardedLocations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.discarded...)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

var errStoreDown = errors.New("store down")

// multipartBody builds a multipart/form-data body from fields and files
// keyed by form name.
func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for name, content := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, name+".bin"))
		header.Set("Content-Type", "application/octet-stream")
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part %s: %v", name, err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func multipartRequest(t *testing.T, method, target string, fields, files map[string]string) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, fields, files)
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, user models.User) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), user))
}

// decodeData decodes a success envelope and its data payload into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) response.Envelope {
	t.Helper()
	var envelope struct {
		response.Envelope
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if dst != nil {
		if err := json.Unmarshal(envelope.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return envelope.Envelope
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorEnvelope {
	t.Helper()
	var envelope response.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope
}

func newUser(username string) models.User {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.com",
		FullName:  strings.ToUpper(username[:1]) + username[1:],
		Avatar:    "https://cdn.example.com/avatars/" + username + ".png",
		CreatedAt: now,
		UpdatedAt: now,
	}
}
