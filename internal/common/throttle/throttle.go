package throttle

import (
	"context"
	"time"

	"member-directory-bot/internal/platform/redis"
)

// Throttle answers "has this key fired within its window". Used for the
// per-user identity refresh limiter and the per-chat welcome anti-spam.
type Throttle interface {
	// Allow returns true when the key was not set yet and claims it for ttl.
	Allow(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type redisThrottle struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) Throttle {
	return &redisThrottle{client: client}
}

func (t *redisThrottle) Allow(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return t.client.SetNX(ctx, key, 1, ttl).Result()
}
