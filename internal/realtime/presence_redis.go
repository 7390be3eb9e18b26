package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const presenceOpTimeout = 2 * time.Second

// RedisPresence backs the registry with a shared store so several server
// instances agree on who is online. Selected when REDIS_URL is configured.
type RedisPresence struct {
	client *redis.Client
}

func NewRedisPresence(client *redis.Client) *RedisPresence {
	return &RedisPresence{client: client}
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

func (p *RedisPresence) Connected(userID int64, connID string) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
	defer cancel()
	if err := p.client.SAdd(ctx, presenceKey(userID), connID).Err(); err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("presence add failed")
	}
}

func (p *RedisPresence) Disconnected(userID int64, connID string) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
	defer cancel()
	if err := p.client.SRem(ctx, presenceKey(userID), connID).Err(); err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("presence remove failed")
	}
}

func (p *RedisPresence) IsOnline(userID int64) bool {
	ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
	defer cancel()
	count, err := p.client.SCard(ctx, presenceKey(userID)).Result()
	if err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("presence query failed")
		return false
	}
	return count > 0
}
