package common

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// RunLock guards a named job so only one holder runs it at a time.
// Locks expire after their TTL so a crashed holder cannot block forever.
type RunLock interface {
	// Acquire takes the lock for owner. It returns false when someone else holds it.
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Release drops the lock if owner still holds it
	Release(ctx context.Context, key, owner string) error
}

// MemoryRunLock is a process-local RunLock backed by go-cache
type MemoryRunLock struct {
	mu    sync.Mutex
	cache *cache.Cache
}

var _ RunLock = (*MemoryRunLock)(nil)

func NewMemoryRunLock() *MemoryRunLock {
	return &MemoryRunLock{cache: cache.New(cache.NoExpiration, time.Minute)}
}

func (l *MemoryRunLock) Acquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Add fails while an unexpired item exists
	if err := l.cache.Add(key, owner, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (l *MemoryRunLock) Release(_ context.Context, key, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if holder, found := l.cache.Get(key); found && holder == owner {
		l.cache.Delete(key)
	}
	return nil
}

// releaseScript deletes the key only when it still carries the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLock is a RunLock shared by every process using the same Redis
type RedisRunLock struct {
	client *redis.Client
}

var _ RunLock = (*RedisRunLock)(nil)

func NewRedisRunLock(client *redis.Client) *RedisRunLock {
	return &RedisRunLock{client: client}
}

func (l *RedisRunLock) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

func (l *RedisRunLock) Release(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{key}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}
