package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects to Redis, or returns nil when address is empty.
func InitRedis(ctx context.Context, address, password string) (*redis.Client, error) {
	if address == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       0,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
