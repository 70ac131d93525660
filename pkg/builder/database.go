package builder

import "github.com/Egham-7/bedtime-stories/internal/models"

func (b *Builder) WithDatabase(cfg models.DatabaseConfig) *Builder {
	b.cfg.Database = &cfg
	return b
}

// WithRedisCache stores generated stories in Redis instead of process memory
func (b *Builder) WithRedisCache(redisURL string) *Builder {
	b.cfg.Cache.Backend = models.CacheBackendRedis
	b.cfg.Cache.RedisURL = redisURL
	return b
}

func (b *Builder) WithCache(cfg models.CacheConfig) *Builder {
	if cfg.Backend == "" {
		cfg.Backend = models.CacheBackendMemory
	}
	b.cfg.Cache = cfg
	return b
}
