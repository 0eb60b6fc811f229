package database

import (
	"context"
	"fmt"
	"time"

	"github.com/datalexum/aquawiz-monitor/pkg/config"
	"github.com/datalexum/aquawiz-monitor/pkg/utils"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisDB wraps a Redis client connection used for the latest-snapshot
// cache. Connects with the same retry/backoff behaviour as PostgreSQL so
// startup tolerates a Redis container that is not ready yet.
type RedisDB struct {
	client *redis.Client
}

// NewRedisDB creates a new Redis connection with automatic retry.
func NewRedisDB(cfg *config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	retryConfig := utils.DatabaseRetryConfig()
	retryConfig.MaxAttempts = 5
	retryConfig.InitialDelay = 100 * time.Millisecond
	retryConfig.MaxDelay = 3 * time.Second

	err := utils.Retry(ctx, retryConfig, func() error {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pingCancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to ping Redis, retrying...")
			return err
		}
		return nil
	})

	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis after retries: %w", err)
	}

	log.Info().Str("addr", cfg.Address()).Msg("Successfully connected to Redis")

	return &RedisDB{client: client}, nil
}

// Close closes the Redis connection.
func (r *RedisDB) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client for use by the cache layer.
func (r *RedisDB) Client() *redis.Client {
	return r.client
}

// Ping checks if the Redis connection is alive.
// Used by the readiness endpoint.
func (r *RedisDB) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
