package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asphalt-aid/backend/internal/config"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client

// ConnectRedis opens the client shared by the job queue and the rate limiter check.
func ConnectRedis(cfg *config.Config) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	Redis = client
	slog.Info("redis connected", "addr", cfg.RedisAddr(), "db", cfg.RedisDB)
	return nil
}

func PingRedis(ctx context.Context) error {
	if Redis == nil {
		return fmt.Errorf("redis not connected")
	}
	return Redis.Ping(ctx).Err()
}
