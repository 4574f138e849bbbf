package media

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/metrics"
)

// Deleter removes stored objects by key.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// JanitorConfig controls the concurrency and retry policy of the janitor.
type JanitorConfig struct {
	QueueSize int
	Workers   int
	Attempts  int
	Backoff   time.Duration
}

// Janitor retries failed object deletions in the background.
type Janitor struct {
	store    Deleter
	logger   *slog.Logger
	attempts int
	backoff  time.Duration

	mu     sync.Mutex
	closed bool
	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewJanitor starts the worker pool.
func NewJanitor(store Deleter, cfg JanitorConfig, logger *slog.Logger) *Janitor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	j := &Janitor{
		store:    store,
		logger:   logger,
		attempts: cfg.Attempts,
		backoff:  cfg.Backoff,
		jobs:     make(chan string, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	j.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go j.worker()
	}

	return j
}

// Enqueue schedules deletion of key without blocking. A full queue drops the key.
func (j *Janitor) Enqueue(key string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return errJanitorClosed
	}

	select {
	case j.jobs <- key:
		return nil
	default:
		metrics.RecordCleanup(metrics.ResultDropped)
		j.logger.Error("media janitor queue full, dropping object", "key", key)
		return errJanitorFull
	}
}

// Shutdown stops accepting work and waits for queued deletions to finish.
// Pending retries are abandoned when ctx expires.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.jobs)
		j.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		j.cancel()
		return ctx.Err()
	case <-done:
		j.cancel()
		return nil
	}
}

func (j *Janitor) worker() {
	defer j.wg.Done()

	for key := range j.jobs {
		j.handle(key)
	}
}

func (j *Janitor) handle(key string) {
	ctx, span := logging.StartSpan(logging.WithLogger(j.ctx, j.logger), "media.cleanup", "key", key)

	var err error
	wait := j.backoff
	for attempt := 1; attempt <= j.attempts; attempt++ {
		err = j.deleteOnce(ctx, key)
		if err == nil {
			metrics.RecordCleanup(metrics.ResultSuccess)
			span.End(nil)
			return
		}

		if attempt == j.attempts {
			break
		}

		metrics.RecordCleanup(metrics.ResultRetried)
		logging.FromContext(ctx).Warn("media cleanup attempt failed", "attempt", attempt, "error", err)

		select {
		case <-j.ctx.Done():
			metrics.RecordCleanup(metrics.ResultFailure)
			span.End(j.ctx.Err())
			return
		case <-time.After(wait):
		}
		wait *= 2
	}

	metrics.RecordCleanup(metrics.ResultFailure)
	span.End(err)
}

func (j *Janitor) deleteOnce(ctx context.Context, key string) error {
	if j.store == nil {
		return ErrStoreUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return j.store.Delete(ctx, key)
}
