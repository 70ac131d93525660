package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKeyPrefix = "memo:"
	payloadField          = "payload"
	createdAtField        = "created_at"
	clearScanBatch        = 200
)

// RedisStore keeps entries in Redis hashes so several API replicas share one memo.
// Each key expires after retention, which is independent of the freshness window.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewRedisStore creates a Redis-backed store; retention <= 0 keeps keys forever
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		prefix:    defaultRedisKeyPrefix,
		retention: retention,
	}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	values, err := s.client.HGetAll(ctx, s.redisKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("failed to read memo entry: %w", err)
	}

	payload, hasPayload := values[payloadField]
	createdRaw, hasCreated := values[createdAtField]
	if !hasPayload || !hasCreated {
		return Entry{}, false, nil
	}

	createdNanos, err := strconv.ParseInt(createdRaw, 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("corrupt memo timestamp for %s: %w", key, err)
	}

	return Entry{
		Key:       key,
		Payload:   []byte(payload),
		CreatedAt: time.Unix(0, createdNanos),
	}, true, nil
}

func (s *RedisStore) Set(ctx context.Context, entry Entry) error {
	redisKey := s.redisKey(entry.Key)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisKey)
		pipe.HSet(ctx, redisKey,
			payloadField, entry.Payload,
			createdAtField, strconv.FormatInt(entry.CreatedAt.UnixNano(), 10),
		)
		if s.retention > 0 {
			pipe.PExpire(ctx, redisKey, s.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write memo entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete memo entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", clearScanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan memo entries: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to clear memo entries: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
