package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"yieldpool/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes every event as JSON on a pub/sub channel.
type RedisPublisher struct {
	cli     redis.UniversalClient
	channel string
}

func NewRedisPublisher(cli redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{cli: cli, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	pipe := p.cli.Pipeline()
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %d: %w", e.Id, err)
		}
		pipe.Publish(ctx, p.channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error("Failed to publish events to redis: ", err)
		return err
	}
	return nil
}
