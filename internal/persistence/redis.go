package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk/internal/config"
)

// Redis wraps the go-redis client holding the chat waiting queue and the
// registry lookup cache.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the client. Redis being down at startup is logged, not
// fatal: chat requests fail until it returns and readiness reports it.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: applicationName,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
