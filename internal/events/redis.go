package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/article-generation-api/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisPublisher publishes events as JSON on a Redis pub/sub channel
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	log     zerolog.Logger
}

// NewRedisPublisher connects to Redis and verifies the connection
func NewRedisPublisher(cfg config.EventsConfig, log zerolog.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	return NewRedisPublisherWithClient(client, cfg.Channel, log), nil
}

// NewRedisPublisherWithClient wraps an existing client
func NewRedisPublisherWithClient(client redis.UniversalClient, channel string, log zerolog.Logger) *RedisPublisher {
	p := &RedisPublisher{
		client:  client,
		channel: channel,
		log:     log.With().Str("component", "events").Logger(),
	}
	p.log.Info().Str("channel", channel).Msg("Redis event publisher ready")
	return p
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s for article %d: %w", event.Type, event.ArticleID, err)
	}
	return nil
}

// Close implements Publisher
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
