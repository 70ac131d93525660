package clientcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache keeps one SDK client per credential set. Concurrent first use of a key
// builds the client once.
type Cache[T any] struct {
	clients sync.Map
	group   singleflight.Group
}

// New creates an empty client cache
func New[T any]() *Cache[T] {
	return &Cache[T]{}
}

// Key derives a cache key from credential parts without keeping the secrets in memory
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:16])
}

// GetOrCreate returns the cached client for key or builds it with factory
func (c *Cache[T]) GetOrCreate(key string, factory func() (T, error)) (T, error) {
	if cached, ok := c.clients.Load(key); ok {
		return cached.(T), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.clients.Load(key); ok {
			return cached, nil
		}

		client, err := factory()
		if err != nil {
			return nil, err
		}
		c.clients.Store(key, client)
		return client, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// Delete drops one client, forcing a rebuild on next use
func (c *Cache[T]) Delete(key string) {
	c.clients.Delete(key)
}

// Clear drops every client
func (c *Cache[T]) Clear() {
	c.clients.Range(func(key, _ any) bool {
		c.clients.Delete(key)
		return true
	})
}
