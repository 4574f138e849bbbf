package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/streamhub/backend/internal/metrics"
)

type countingDeleter struct {
	calls atomic.Int32
	err   error
}

func (d *countingDeleter) Delete(ctx context.Context, key string) error {
	d.calls.Add(1)
	return d.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJanitorGivesUpAfterAttempts(t *testing.T) {
	metrics.MediaCleanupTotal.Reset()

	deleter := &countingDeleter{err: errors.New("boom")}
	janitor := NewJanitor(deleter, JanitorConfig{QueueSize: 1, Workers: 1, Attempts: 3, Backoff: time.Millisecond}, discardLogger())

	if err := janitor.Enqueue("videos/a.mp4"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := janitor.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := deleter.calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if got := testutil.ToFloat64(metrics.MediaCleanupTotal.WithLabelValues(metrics.ResultFailure)); got != 1 {
		t.Fatalf("expected 1 failure recorded, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.MediaCleanupTotal.WithLabelValues(metrics.ResultRetried)); got != 2 {
		t.Fatalf("expected 2 retries recorded, got %f", got)
	}
}

func TestJanitorRejectsAfterShutdown(t *testing.T) {
	janitor := NewJanitor(&countingDeleter{}, JanitorConfig{}, discardLogger())

	if err := janitor.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := janitor.Enqueue("videos/a.mp4"); !errors.Is(err, errJanitorClosed) {
		t.Fatalf("expected errJanitorClosed, got %v", err)
	}
	if err := janitor.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestJanitorShutdownDeadlineAbandonsRetries(t *testing.T) {
	deleter := &countingDeleter{err: errors.New("boom")}
	janitor := NewJanitor(deleter, JanitorConfig{QueueSize: 1, Workers: 1, Attempts: 5, Backoff: time.Hour}, discardLogger())

	if err := janitor.Enqueue("videos/a.mp4"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := janitor.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
