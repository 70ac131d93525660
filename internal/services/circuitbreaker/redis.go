package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	circuitBreakerKeyPrefix = "circuit_breaker:"
	stateKey                = "state"
	failureCountKey         = "failure_count"
	successCountKey         = "success_count"
	lastFailureTimeKey      = "last_failure_time"
	lastStateChangeKey      = "last_state_change"
)

// Lua scripts for atomic circuit breaker operations. Timestamps are unix milliseconds.
const (
	// KEYS: state, failure_count, success_count, last_state_change
	// ARGV: success threshold, now
	recordSuccessScript = `
		local state = tonumber(redis.call('GET', KEYS[1]) or '0')
		redis.call('SET', KEYS[2], 0)

		if state == 2 then
			local count = redis.call('INCR', KEYS[3])
			if count >= tonumber(ARGV[1]) then
				redis.call('SET', KEYS[1], 0)
				redis.call('SET', KEYS[3], 0)
				redis.call('SET', KEYS[4], ARGV[2])
				return 2
			end
			return 3
		end
		return 0
	`

	// KEYS: state, failure_count, last_failure_time, last_state_change, success_count
	// ARGV: failure threshold, now
	recordFailureScript = `
		local state = tonumber(redis.call('GET', KEYS[1]) or '0')
		local failureCount = redis.call('INCR', KEYS[2])
		redis.call('SET', KEYS[3], ARGV[2])

		if (state == 0 and failureCount >= tonumber(ARGV[1])) or state == 2 then
			redis.call('SET', KEYS[1], 1)
			redis.call('SET', KEYS[4], ARGV[2])
			redis.call('SET', KEYS[5], 0)
			return 1
		end
		return 0
	`

	// KEYS: state, last_state_change, success_count
	// ARGV: from, to, now
	transitionScript = `
		local state = tonumber(redis.call('GET', KEYS[1]) or '0')
		if state ~= tonumber(ARGV[1]) then
			return 0
		end
		redis.call('SET', KEYS[1], ARGV[2])
		redis.call('SET', KEYS[2], ARGV[3])
		if tonumber(ARGV[2]) ~= 2 then
			redis.call('SET', KEYS[3], 0)
		end
		return 1
	`
)

type redisBackend struct {
	client *redis.Client
	prefix string
}

func newRedisBackend(client *redis.Client, serviceName string) *redisBackend {
	return &redisBackend{
		client: client,
		prefix: circuitBreakerKeyPrefix + serviceName + ":",
	}
}

func (r *redisBackend) key(name string) string { return r.prefix + name }

func (r *redisBackend) state(ctx context.Context) (State, time.Time, error) {
	values, err := r.client.MGet(ctx, r.key(stateKey), r.key(lastFailureTimeKey)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Closed, time.Time{}, fmt.Errorf("failed to get circuit breaker state: %w", err)
	}

	state := Closed
	if raw, ok := values[0].(string); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Closed, time.Time{}, fmt.Errorf("invalid state value '%s': %w", raw, err)
		}
		state = State(n)
	}

	var lastFailure time.Time
	if raw, ok := values[1].(string); ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return state, time.Time{}, fmt.Errorf("invalid last failure time '%s': %w", raw, err)
		}
		lastFailure = time.UnixMilli(ms)
	}

	return state, lastFailure, nil
}

func (r *redisBackend) recordSuccess(ctx context.Context, successThreshold int, now time.Time) (int, error) {
	keys := []string{r.key(stateKey), r.key(failureCountKey), r.key(successCountKey), r.key(lastStateChangeKey)}
	return r.client.Eval(ctx, recordSuccessScript, keys, successThreshold, now.UnixMilli()).Int()
}

func (r *redisBackend) recordFailure(ctx context.Context, failureThreshold int, now time.Time) (int, error) {
	keys := []string{
		r.key(stateKey), r.key(failureCountKey), r.key(lastFailureTimeKey),
		r.key(lastStateChangeKey), r.key(successCountKey),
	}
	return r.client.Eval(ctx, recordFailureScript, keys, failureThreshold, now.UnixMilli()).Int()
}

func (r *redisBackend) transition(ctx context.Context, from, to State, now time.Time) (bool, error) {
	keys := []string{r.key(stateKey), r.key(lastStateChangeKey), r.key(successCountKey)}
	n, err := r.client.Eval(ctx, transitionScript, keys, int(from), int(to), now.UnixMilli()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *redisBackend) reset(ctx context.Context, now time.Time) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(stateKey), int(Closed), 0)
	pipe.Set(ctx, r.key(failureCountKey), 0, 0)
	pipe.Set(ctx, r.key(successCountKey), 0, 0)
	pipe.Set(ctx, r.key(lastStateChangeKey), now.UnixMilli(), 0)
	_, err := pipe.Exec(ctx)
	return err
}
