package cache

import (
	"fmt"

	"github.com/Egham-7/bedtime-stories/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// NewFromConfig builds the configured store and wraps it in a Memo
func NewFromConfig(cfg models.CacheConfig, redisClient *redis.Client, observer Observer) (*Memo, error) {
	var store Store

	backend := cfg.Backend
	if backend == "" {
		backend = models.CacheBackendMemory
	}

	switch backend {
	case models.CacheBackendMemory:
		store = NewMemoryStore(cfg.MaxEntries)
		fiberlog.Infof("Memo cache: in-memory backend (max entries: %d, 0 = unbounded)", cfg.MaxEntries)
	case models.CacheBackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis cache backend selected but no Redis client is available")
		}
		store = NewRedisStore(redisClient, cfg.GetRetention())
		fiberlog.Infof("Memo cache: Redis backend (retention: %v)", cfg.GetRetention())
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s (supported: redis, memory)", backend)
	}

	opts := []Option{WithDedupe(cfg.DedupeEnabled()), WithComputeTimeout(cfg.ComputeTimeout)}
	if observer != nil {
		opts = append(opts, WithObserver(observer))
	}

	return New(store, cfg.GetTTL(), opts...), nil
}
