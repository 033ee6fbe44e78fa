package server

import (
	"context"
	"time"

	"accounthub/internal/config"
	"accounthub/internal/events"
	"accounthub/internal/media"
	"accounthub/internal/modules/account"
	"accounthub/internal/pkg/lock"
	"accounthub/internal/pkg/logging"

	"github.com/redis/go-redis/v9"
)

const refreshLockTTL = 10 * time.Second

func NewUploader(ctx context.Context, cfg *config.Config) (account.MediaUploader, error) {
	if cfg.MediaDriver == config.MediaDriverS3 {
		u, err := media.NewS3Uploader(ctx, media.S3Options{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Folder:          cfg.S3.Folder,
			PublicBaseURL:   cfg.MediaPublicBaseURL,
			MaxBytes:        cfg.MaxUploadBytes,
		})
		if err != nil {
			return nil, err
		}
		return u, nil
	}
	return media.NewLocalUploader(cfg.MediaLocalDir, cfg.MediaPublicBaseURL, cfg.MaxUploadBytes), nil
}

// NewLocker returns a Redis-backed lock when REDIS_ADDR is set so several
// API replicas serialise refreshes for the same user. The returned closer is
// never nil.
func NewLocker(ctx context.Context, cfg *config.Config, log logging.Logger) (account.Locker, func() error) {
	if cfg.RedisAddr == "" {
		return lock.NewLocal(), func() error { return nil }
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn(ctx, "redis unavailable, using in-process locks", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return lock.NewLocal(), func() error { return nil }
	}
	log.Info(ctx, "using redis locks", "addr", cfg.RedisAddr)
	return lock.NewRedis(client, "accounthub:lock:", refreshLockTTL), client.Close
}

// NewPublisher connects to RabbitMQ when RABBITMQ_URL is set. Events are
// best effort, so a broker that cannot be reached only disables them.
func NewPublisher(ctx context.Context, cfg *config.Config, log logging.Logger) (account.EventPublisher, func() error) {
	if cfg.RabbitMQURL == "" {
		return events.Noop{}, func() error { return nil }
	}
	pub, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		log.Warn(ctx, "rabbitmq unavailable, account events disabled", "error", err)
		return events.Noop{}, func() error { return nil }
	}
	log.Info(ctx, "publishing account events", "exchange", cfg.RabbitMQExchange)
	return pub, pub.Close
}
