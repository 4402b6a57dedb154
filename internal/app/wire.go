package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/sorbot/internal/blob/s3"
	"github.com/alanyoungcy/sorbot/internal/cache/redis"
	"github.com/alanyoungcy/sorbot/internal/config"
	"github.com/alanyoungcy/sorbot/internal/crypto"
	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/notify"
	"github.com/alanyoungcy/sorbot/internal/store/postgres"
	"github.com/alanyoungcy/sorbot/internal/venue"
	"github.com/alanyoungcy/sorbot/internal/venue/gateio"
	"github.com/alanyoungcy/sorbot/internal/venue/mexc"
	"github.com/alanyoungcy/sorbot/internal/venue/paper"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Venue adapters in routing priority order.
	Venues []*venue.Adapter

	// Stores
	ExecutionStore domain.ExecutionStore
	ArbStore       domain.ArbStore

	// Caches
	QuoteCache  domain.QuoteCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Blob storage (nil unless archiving is enabled)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Venue adapters ---
	venues, err := buildVenues(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	deps.Venues = venues

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.ExecutionStore = postgres.NewExecutionStore(pool)
	deps.ArbStore = postgres.NewArbStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.QuoteCache = redis.NewQuoteCache(redisClient, cfg.Feed.QuoteTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- S3 blob storage (only when archiving is on) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			deps.ExecutionStore,
			deps.ArbStore,
			deps.LockManager,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// buildVenues constructs one adapter per enabled venue in routing priority
// order. When dry_run is set every venue's trading surface is replaced by
// the paper simulator; market data stays live.
func buildVenues(cfg *config.Config, logger *slog.Logger) ([]*venue.Adapter, error) {
	ids := cfg.OrderedVenues()
	if len(ids) == 0 {
		return nil, errors.New("wire: no venues enabled")
	}

	adapters := make([]*venue.Adapter, 0, len(ids))
	for _, id := range ids {
		vc := cfg.Venues[id]

		auth := &crypto.HMACAuth{Key: vc.ApiKey}
		if vc.ApiSecret != "" || vc.EncryptedSecretPath != "" {
			secret, err := crypto.LoadSecret(crypto.SecretConfig{
				RawSecret:           vc.ApiSecret,
				EncryptedSecretPath: vc.EncryptedSecretPath,
				SecretPassword:      vc.SecretPassword,
			})
			if err != nil {
				return nil, fmt.Errorf("wire: venue %s: %w", id, err)
			}
			auth.Secret = secret
		}

		var ex venue.Exchange
		switch id {
		case "gateio":
			ex = gateio.NewClient(vc.RestURL, auth)
		case "mexc":
			ex = mexc.NewClient(vc.RestURL, auth)
		default:
			// Config-only profiles (kucoin, bitget, bitmart) must stay
			// disabled until a client exists for them.
			return nil, fmt.Errorf("wire: venue %q has no client implementation", id)
		}

		if cfg.Router.DryRun {
			ex = paper.New(ex)
		}

		adapters = append(adapters, venue.NewAdapter(ex, vc.Profile(id), logger))
	}

	return adapters, nil
}

// retention converts the configured retention in days to a duration.
func retention(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Archive.RetentionDays) * 24 * time.Hour
}
