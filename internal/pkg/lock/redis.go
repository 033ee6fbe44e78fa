package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL       = 10 * time.Second
	defaultRetryWait = 25 * time.Millisecond
)

// Deletes the key only while it still holds our token, so an expired lock
// taken over by another holder is never released by us.
var releaseLua = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process pointed at the same Redis.
// Locks expire after ttl so a crashed holder cannot block a key forever.
type Redis struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{
		client:    client,
		prefix:    prefix,
		ttl:       ttl,
		retryWait: defaultRetryWait,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryWait)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", fullKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled.
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = releaseLua.Run(releaseCtx, r.client, []string{fullKey}, token).Err()
		})
	}, nil
}
