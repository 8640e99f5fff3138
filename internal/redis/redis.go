package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/quillpad/quillpad/internal/config"
)

// clientName identifies the shared rate-limit counters' connections in
// CLIENT LIST.
const clientName = "quillpad-ratelimit"

// NewClient connects to the Redis instance holding the fixed-window counters
// shared by every gateway replica.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr(),
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: clientName,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	slog.Info("ratelimit: using shared redis counters", "addr", cfg.Addr(), "db", cfg.DB)
	return client, nil
}
