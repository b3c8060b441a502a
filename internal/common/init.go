package common

import (
	"beer-and-hike/backend/internal/config"
	"beer-and-hike/backend/internal/logging"
)

// InitCacheAndLock picks Redis when a host is configured and the in-memory
// implementations otherwise. An unreachable Redis is an error, not a fallback.
func InitCacheAndLock(cfg *config.Config) (CacheInterface, RunLock, error) {
	if !cfg.RedisEnabled() {
		logging.Info("REDIS_HOST not set, using in-memory cache and run lock")
		return NewCacheService(3600, 600), NewMemoryRunLock(), nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewRedisCacheService(client), NewRedisRunLock(client), nil
}
