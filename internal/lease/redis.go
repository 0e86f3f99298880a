// Package lease provides short-lived exclusive keys shared by every API and
// poller instance.
package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "veostudio:lease:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease implements Acquire with SET NX PX.
type RedisLease struct {
	client redis.UniversalClient
	logger zerolog.Logger
}

func NewRedisLease(client redis.UniversalClient, logger zerolog.Logger) *RedisLease {
	return &RedisLease{client: client, logger: logger}
}

// Acquire takes key for ttl. ok is false when another holder owns it. The
// returned release is safe to call after the lease expired.
func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	fullKey := keyPrefix + key
	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("lease: release failed")
		}
	}
	return release, true, nil
}
