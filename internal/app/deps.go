package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/channels"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/videos"
)

const rateLimitIdleTTL = 10 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, recorder *metrics.Recorder, logger *slog.Logger) (handlers.Dependencies, error) {
	objects, err := newObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, err
	}
	media := storage.NewMediaStore(objects, recorder.ObserveMedia)

	users := repositories.NewPostgresUserRepository(pool)
	tokens := auth.NewManager(auth.Options{
		AccessSecret:  []byte(cfg.Auth.AccessTokenSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshTokenSecret),
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	}, repositories.NewPostgresRefreshTokenStore(pool), auth.WithRotationObserver(recorder.ObserveRotation))

	return handlers.Dependencies{
		Logger:   logger,
		Accounts: accounts.NewService(users, tokens, auth.BcryptHasher{Cost: cfg.Auth.BcryptCost}, media),
		Channels: channels.NewService(
			repositories.NewPostgresChannelRepository(pool),
			repositories.NewPostgresSubscriptionRepository(pool),
		),
		Videos:          videos.NewService(repositories.NewPostgresVideoRepository(pool), users, media, cfg.MaxVideoBytes),
		Tokens:          tokens,
		RateLimiter:     middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, rateLimitIdleTTL),
		TrustProxy:      cfg.RateLimit.TrustProxy,
		RequestObserver: recorder,
		Metrics:         recorder.Handler(),
		HealthCheck:     pingDatabase(pool),
		Uploads: handlers.UploadLimits{
			Dir:           cfg.UploadDir,
			MaxImageBytes: cfg.MaxImageBytes,
			MaxVideoBytes: cfg.MaxVideoBytes,
		},
		Cookies: handlers.CookieOptions{Secure: cfg.Auth.CookieSecure},
	}, nil
}

func newObjectStore(ctx context.Context, cfg config.ObjectStoreConfig) (storage.ObjectStore, error) {
	switch cfg.Backend {
	case config.BackendS3:
		return storage.NewS3Storage(ctx, cfg)
	case config.BackendMinio:
		return storage.NewMinioStorage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown object store backend %q", cfg.Backend)
	}
}

func pingDatabase(pool db.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire connection: %w", err)
		}
		defer conn.Release()
		return conn.Ping(ctx)
	}
}
