package db

import (
	"context"
	"fmt"

	"lead_portal_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the configured Redis and verifies it with a
// ping.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
