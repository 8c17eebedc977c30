package redis

import (
	"context"

	"github.com/it-Barath/fpms-sub006/common/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient builds a client from cfg. It does not dial.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close closes client; nil is a no-op.
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
