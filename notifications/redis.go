package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const changeChannel = "tournament.changes"

type redisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := p.client.Publish(ctx, changeChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

type redisConsumer struct {
	client *redis.Client
	pubsub *redis.PubSub
	logger *slog.Logger
}

func NewRedisConsumer(client *redis.Client, logger *slog.Logger) Consumer {
	return &redisConsumer{client: client, logger: logger}
}

func (c *redisConsumer) Events(ctx context.Context) (<-chan ChangeEvent, error) {
	c.pubsub = c.client.Subscribe(ctx, changeChannel)
	if _, err := c.pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", changeChannel, err)
	}

	out := make(chan ChangeEvent)
	go func() {
		defer close(out)
		in := c.pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					c.logger.Warn("discarding malformed change event", slog.Any("error", err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (c *redisConsumer) Close() error {
	if c.pubsub != nil {
		return c.pubsub.Close()
	}
	return nil
}
