package models

import "time"

// CacheBackendType represents the type of cache backend to use
type CacheBackendType string

const (
	CacheBackendRedis  CacheBackendType = "redis"
	CacheBackendMemory CacheBackendType = "memory"
)

// Default memo cache settings
const (
	DefaultCacheTTL       = 10 * time.Minute
	DefaultCacheRetention = 24 * time.Hour
)

// CacheConfig holds configuration for the generation memo cache
type CacheConfig struct {
	Backend  CacheBackendType `json:"backend,omitzero" yaml:"backend"`     // "redis" or "memory"
	RedisURL string           `json:"redis_url,omitzero" yaml:"redis_url"` // Required if backend is "redis"

	TTL           time.Duration `json:"ttl,omitzero" yaml:"ttl"`                       // Freshness window
	Retention     time.Duration `json:"retention,omitzero" yaml:"retention"`           // Redis key expiry, independent of freshness
	Dedupe        *bool         `json:"dedupe,omitzero" yaml:"dedupe"`                 // Collapse concurrent misses per key
	MaxEntries    int           `json:"max_entries,omitzero" yaml:"max_entries"`       // Memory backend bound, 0 = unbounded
	SweepInterval time.Duration `json:"sweep_interval,omitzero" yaml:"sweep_interval"` // 0 disables sweeping

	ComputeTimeout time.Duration `json:"compute_timeout,omitzero" yaml:"compute_timeout"` // Bound on a computation its caller abandoned
}

// GetTTL returns the freshness window, defaulting to ten minutes
func (c CacheConfig) GetTTL() time.Duration {
	if c.TTL <= 0 {
		return DefaultCacheTTL
	}
	return c.TTL
}

// GetRetention returns how long Redis keeps entries around
func (c CacheConfig) GetRetention() time.Duration {
	if c.Retention <= 0 {
		return DefaultCacheRetention
	}
	return c.Retention
}

// DedupeEnabled reports whether in-flight deduplication is on (default true)
func (c CacheConfig) DedupeEnabled() bool {
	return c.Dedupe == nil || *c.Dedupe
}
