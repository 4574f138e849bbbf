package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

type objectStoreStub struct {
	mu        sync.Mutex
	saved     map[string][]byte
	types     map[string]string
	deleted   []string
	saveErr   error
	deleteErr error
	emptyURL  bool
}

func (s *objectStoreStub) Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	_ = ctx
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string][]byte)
		s.types = make(map[string]string)
	}
	s.saved[key] = data
	s.types[key] = contentType
	if s.emptyURL {
		return "", nil
	}
	return fmt.Sprintf("https://cdn.example.com/%s", key), nil
}

func (s *objectStoreStub) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *objectStoreStub) KeyFromURL(location string) (string, bool) {
	key, ok := strings.CutPrefix(location, "https://cdn.example.com/")
	return key, ok && key != ""
}

func (s *objectStoreStub) deletedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

type proberFunc func(ctx context.Context, path string) (float64, error)

func (f proberFunc) Duration(ctx context.Context, path string) (float64, error) {
	return f(ctx, path)
}

func TestUploadImage(t *testing.T) {
	store := &objectStoreStub{}
	svc := NewService(store, nil, nil, t.TempDir())

	url, err := svc.UploadImage(context.Background(), FolderAvatars, Upload{
		Reader:      strings.NewReader("png-bytes"),
		Filename:    "Me.PNG",
		ContentType: "image/png",
	})
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.example.com/avatars/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url %q", url)
	}

	key, _ := store.KeyFromURL(url)
	if string(store.saved[key]) != "png-bytes" || store.types[key] != "image/png" {
		t.Fatalf("unexpected stored object for %s", key)
	}
}

func TestUploadImageFailures(t *testing.T) {
	up := Upload{Reader: strings.NewReader("x"), Filename: "a.png"}

	if _, err := NewService(nil, nil, nil, "").UploadImage(context.Background(), FolderCovers, up); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	empty := NewService(&objectStoreStub{emptyURL: true}, nil, nil, "")
	if _, err := empty.UploadImage(context.Background(), FolderCovers, Upload{Reader: strings.NewReader("x")}); !errors.Is(err, ErrEmptyLocation) {
		t.Fatalf("expected ErrEmptyLocation, got %v", err)
	}

	failing := NewService(&objectStoreStub{saveErr: errors.New("denied")}, nil, nil, "")
	if _, err := failing.UploadImage(context.Background(), FolderCovers, Upload{Reader: strings.NewReader("x")}); err == nil {
		t.Fatal("expected save error")
	}
}

func TestUploadVideoProbesSpooledCopy(t *testing.T) {
	dir := t.TempDir()
	store := &objectStoreStub{}
	var probed string
	prober := proberFunc(func(ctx context.Context, path string) (float64, error) {
		probed = path
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		if string(data) != "video-bytes" {
			t.Fatalf("unexpected spooled content %q", data)
		}
		return 42.5, nil
	})

	svc := NewService(store, prober, nil, dir)
	asset, err := svc.UploadVideo(context.Background(), Upload{
		Reader:      strings.NewReader("video-bytes"),
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
	})
	if err != nil {
		t.Fatalf("UploadVideo() error = %v", err)
	}
	if asset.Duration != 42.5 || !strings.HasPrefix(asset.URL, "https://cdn.example.com/videos/") {
		t.Fatalf("unexpected asset %+v", asset)
	}

	key, _ := store.KeyFromURL(asset.URL)
	if string(store.saved[key]) != "video-bytes" {
		t.Fatalf("expected full content to be uploaded, got %q", store.saved[key])
	}

	if _, err := os.Stat(probed); !os.IsNotExist(err) {
		t.Fatalf("expected temp file %s to be removed, stat err = %v", probed, err)
	}
}

func TestUploadVideoProbeFailure(t *testing.T) {
	store := &objectStoreStub{}
	prober := proberFunc(func(ctx context.Context, path string) (float64, error) {
		return 0, ErrNoDuration
	})

	svc := NewService(store, prober, nil, t.TempDir())
	if _, err := svc.UploadVideo(context.Background(), Upload{Reader: strings.NewReader("x"), Filename: "clip.mp4"}); !errors.Is(err, ErrNoDuration) {
		t.Fatalf("expected ErrNoDuration, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatal("nothing should be uploaded when probing fails")
	}
}

func TestDiscard(t *testing.T) {
	store := &objectStoreStub{}
	svc := NewService(store, nil, nil, "")

	svc.Discard(context.Background(),
		"https://cdn.example.com/videos/a.mp4",
		"",
		"https://elsewhere.example.com/b.png",
		"https://cdn.example.com/thumbnails/t.png",
	)

	got := store.deletedKeys()
	if len(got) != 2 || got[0] != "videos/a.mp4" || got[1] != "thumbnails/t.png" {
		t.Fatalf("unexpected deletions %v", got)
	}
}

func TestDiscardHandsFailuresToJanitor(t *testing.T) {
	store := &objectStoreStub{deleteErr: errors.New("temporarily unavailable")}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	janitor := NewJanitor(store, JanitorConfig{QueueSize: 4, Workers: 1, Attempts: 3, Backoff: 20 * time.Millisecond}, logger)

	svc := NewService(store, nil, janitor, "")
	svc.Discard(context.Background(), "https://cdn.example.com/videos/a.mp4")

	store.mu.Lock()
	store.deleteErr = nil
	store.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := janitor.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	got := store.deletedKeys()
	if len(got) != 1 || got[0] != "videos/a.mp4" {
		t.Fatalf("expected janitor to retry the deletion, got %v", got)
	}
}
