package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/fieldcast/internal/config"
	"github.com/dkeye/fieldcast/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisSink publishes session records on a pub/sub channel.
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(cfg config.RedisConfig) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisSink{client: client, channel: cfg.Channel}, nil
}

func (r *RedisSink) SessionEnded(ctx context.Context, rec domain.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

func (r *RedisSink) Close() error {
	return r.client.Close()
}
