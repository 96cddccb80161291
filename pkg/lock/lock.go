// Package lock provides short-lived exclusive leases keyed by string.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Locker hands out leases. A lease expires on its own after ttl so a crashed
// holder cannot block the key forever.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	fullKey := l.prefix + key
	ok, err := l.rdb.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.rdb, []string{fullKey}, token).Err()
	}
	return release, true, nil
}

// MemoryLocker is the single-process variant used when Redis is absent.
type MemoryLocker struct {
	leases *cache.Cache
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: cache.New(10*time.Minute, time.Minute)}
}

func (l *MemoryLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	// Add fails while an unexpired entry exists, which makes it a test-and-set.
	if err := l.leases.Add(key, token, ttl); err != nil {
		return func() {}, false, nil
	}
	release := func() {
		if current, found := l.leases.Get(key); found && current == token {
			l.leases.Delete(key)
		}
	}
	return release, true, nil
}
