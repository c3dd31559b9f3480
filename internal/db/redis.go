package db

import (
	"context"
	"fmt"

	"todo_app/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

// ConnectRedis creates a client and pings it.
func ConnectRedis(ctx context.Context, addr, password string, index int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: index})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	logger.Info("redis connected", "addr", addr)
	return client, nil
}
