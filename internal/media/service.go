// Package media delegates binary assets to the object store: image and video
// uploads, video duration probing and best-effort deletion.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/metrics"
)

// Folders under which uploads are stored.
const (
	FolderAvatars    = "avatars"
	FolderCovers     = "covers"
	FolderThumbnails = "thumbnails"
	FolderVideos     = "videos"
)

const (
	kindImage = "image"
	kindVideo = "video"
)

// ObjectStore persists uploaded objects and maps their public locations back to keys.
type ObjectStore interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(location string) (string, bool)
}

// DurationProber reports the playback length of a local media file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Upload is a file received from a client.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

// VideoAsset is a stored video together with its derived duration.
type VideoAsset struct {
	URL      string
	Duration float64
}

// Service uploads and removes media on behalf of the API.
type Service struct {
	store   ObjectStore
	prober  DurationProber
	janitor *Janitor
	tempDir string
}

// NewService wires the object store, prober and cleanup janitor. janitor may be
// nil, in which case failed deletions are only logged.
func NewService(store ObjectStore, prober DurationProber, janitor *Janitor, tempDir string) *Service {
	return &Service{store: store, prober: prober, janitor: janitor, tempDir: tempDir}
}

// UploadImage stores an image under folder and returns its public URL.
func (s *Service) UploadImage(ctx context.Context, folder string, up Upload) (url string, err error) {
	ctx, span := logging.StartSpan(ctx, "media.upload_image", "folder", folder)
	defer func() {
		metrics.RecordUpload(kindImage, err)
		span.End(err)
	}()

	return s.save(ctx, objectKey(folder, up.Filename), up.Reader, up.ContentType)
}

// UploadVideo spools the upload to a temporary file, probes its duration and
// stores it under the videos folder.
func (s *Service) UploadVideo(ctx context.Context, up Upload) (asset VideoAsset, err error) {
	ctx, span := logging.StartSpan(ctx, "media.upload_video", "filename", up.Filename)
	defer func() {
		metrics.RecordUpload(kindVideo, err)
		span.End(err)
	}()

	if s.prober == nil {
		return VideoAsset{}, ErrProberUnavailable
	}

	tmp, err := os.CreateTemp(s.tempDir, "upload-*"+extension(up.Filename))
	if err != nil {
		return VideoAsset{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, up.Reader); err != nil {
		return VideoAsset{}, fmt.Errorf("spool upload: %w", err)
	}

	duration, err := s.prober.Duration(ctx, tmp.Name())
	if err != nil {
		return VideoAsset{}, fmt.Errorf("probe duration: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return VideoAsset{}, fmt.Errorf("rewind temp file: %w", err)
	}

	url, err := s.save(ctx, objectKey(FolderVideos, up.Filename), tmp, up.ContentType)
	if err != nil {
		return VideoAsset{}, err
	}

	return VideoAsset{URL: url, Duration: duration}, nil
}

func (s *Service) save(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if s.store == nil {
		return "", ErrStoreUnavailable
	}
	url, err := s.store.Save(ctx, key, r, contentType)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(url) == "" {
		return "", ErrEmptyLocation
	}
	return url, nil
}

// Discard removes the objects behind the given public URLs. Locations that do
// not resolve to a key are skipped; failed deletions are handed to the janitor.
// Discard never returns an error: callers have already committed their change.
func (s *Service) Discard(ctx context.Context, locations ...string) {
	logger := logging.FromContext(ctx)

	for _, location := range locations {
		if strings.TrimSpace(location) == "" {
			continue
		}

		if s.store == nil {
			metrics.RecordCleanup(metrics.ResultSkipped)
			continue
		}

		key, ok := s.store.KeyFromURL(location)
		if !ok {
			metrics.RecordCleanup(metrics.ResultSkipped)
			logger.Debug("media location has no object key", "location", location)
			continue
		}

		spanCtx, span := logging.StartSpan(ctx, "media.delete", "key", key)
		err := s.store.Delete(spanCtx, key)
		span.End(err)
		if err == nil {
			metrics.RecordCleanup(metrics.ResultSuccess)
			continue
		}

		if s.janitor == nil {
			metrics.RecordCleanup(metrics.ResultFailure)
			continue
		}
		if qerr := s.janitor.Enqueue(key); qerr != nil {
			logger.Error("schedule media cleanup", "key", key, "error", qerr)
		}
	}
}

func objectKey(folder, filename string) string {
	return path.Join(folder, uuid.NewString()+extension(filename))
}

func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		return ""
	}
	return ext
}
