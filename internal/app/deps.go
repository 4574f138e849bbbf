package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/config"
	"github.com/streamhub/backend/internal/db"
	"github.com/streamhub/backend/internal/handlers"
	"github.com/streamhub/backend/internal/media"
	"github.com/streamhub/backend/internal/middleware"
	"github.com/streamhub/backend/internal/repositories"
	"github.com/streamhub/backend/internal/storage"
)

// cleanupBackoff is the first retry delay of a failed asset deletion.
const cleanupBackoff = 2 * time.Second

// limiterTTL is how long an idle client keeps its rate limit bucket.
const limiterTTL = 10 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background media work.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	objects, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
	}

	janitor := media.NewJanitor(objects, media.JanitorConfig{
		QueueSize: cfg.Media.CleanupQueue,
		Workers:   cfg.Media.CleanupWorkers,
		Attempts:  cfg.Media.CleanupAttempts,
		Backoff:   cleanupBackoff,
	}, logger)
	prober := media.NewFFprobe(cfg.Media.FFprobePath, cfg.Media.ProbeTimeout)
	mediaService := media.NewService(objects, prober, janitor, cfg.Media.TempDir)

	sessions := auth.NewManager(auth.ManagerConfig{
		AccessSecret:  cfg.Tokens.AccessSecret,
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshSecret: cfg.Tokens.RefreshSecret,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
	}, repositories.NewPostgresSessionStore(pool))

	deps := handlers.Dependencies{
		Users:         repositories.NewPostgresUserRepository(pool),
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Sessions:      sessions,
		Tokens:        sessions,
		Media:         mediaService,
		DB:            pool,
		RateLimiter: middleware.NewIPRateLimiter(
			cfg.RateLimit.Requests,
			cfg.RateLimit.Window,
			cfg.RateLimit.Burst,
			limiterTTL,
		),
		Cookies:         handlers.CookieConfig{Secure: cfg.SecureCookies()},
		MaxUploadBytes:  cfg.Media.MaxUploadBytes,
		DefaultCoverURL: cfg.Media.DefaultCoverURL,
	}

	return deps, janitor.Shutdown, nil
}
