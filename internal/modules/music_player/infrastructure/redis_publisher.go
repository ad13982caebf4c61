package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// DefaultRedisChannelPrefix is the default prefix for playback event channels.
const DefaultRedisChannelPrefix = "jukebox:playback"

// redisPublishTimeout bounds a single publish.
const redisPublishTimeout = 2 * time.Second

// RedisEventPublisher publishes playback events as JSON to a per-guild Redis channel
// so that dashboards and other processes can follow playback.
type RedisEventPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisEventPublisher creates a new RedisEventPublisher.
func NewRedisEventPublisher(client *redis.Client, prefix string) *RedisEventPublisher {
	if prefix == "" {
		prefix = DefaultRedisChannelPrefix
	}
	return &RedisEventPublisher{client: client, prefix: prefix}
}

// HandlePlaybackEvent publishes the event to the guild's channel.
func (p *RedisEventPublisher) HandlePlaybackEvent(event domain.PlaybackEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal playback event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
	defer cancel()

	channel := p.Channel(event.GuildID)
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	slog.Debug("published playback event to redis", "channel", channel, "type", event.Type)
	return nil
}

// Channel returns the Redis channel for a guild's events.
func (p *RedisEventPublisher) Channel(guildID snowflake.ID) string {
	return p.prefix + ":" + guildID.String()
}

// Ping checks the Redis connection.
func (p *RedisEventPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (p *RedisEventPublisher) Close() error {
	return p.client.Close()
}

// Ensure RedisEventPublisher implements ports.PlaybackEventHandler.
var _ ports.PlaybackEventHandler = (*RedisEventPublisher)(nil)
