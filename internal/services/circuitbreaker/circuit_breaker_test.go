package circuitbreaker

import (
	"testing"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func breakers(t *testing.T, config Config) map[string]*CircuitBreaker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]*CircuitBreaker{
		"memory": New(nil, "gemini", config),
		"redis":  New(client, "gemini", config),
	}
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	config := Config{FailureThreshold: 2, SuccessThreshold: 2, ResetAfter: time.Minute}

	for name, cb := range breakers(t, config) {
		t.Run(name, func(t *testing.T) {
			now := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
			cb.now = func() time.Time { return now }

			assert.Equal(t, Closed, cb.GetState())
			assert.True(t, cb.CanExecute())

			cb.RecordFailure()
			assert.Equal(t, Closed, cb.GetState())
			cb.RecordFailure()
			assert.Equal(t, Open, cb.GetState())
			assert.False(t, cb.CanExecute())

			now = now.Add(61 * time.Second)
			assert.True(t, cb.CanExecute())
			assert.Equal(t, HalfOpen, cb.GetState())

			cb.RecordSuccess()
			assert.Equal(t, HalfOpen, cb.GetState())
			cb.RecordSuccess()
			assert.Equal(t, Closed, cb.GetState())
		})
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	config := Config{FailureThreshold: 1, SuccessThreshold: 1, ResetAfter: time.Second}

	for name, cb := range breakers(t, config) {
		t.Run(name, func(t *testing.T) {
			now := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
			cb.now = func() time.Time { return now }

			cb.RecordFailure()
			now = now.Add(2 * time.Second)
			assert.True(t, cb.CanExecute())
			assert.Equal(t, HalfOpen, cb.GetState())

			cb.RecordFailure()
			assert.Equal(t, Open, cb.GetState())
			assert.False(t, cb.CanExecute())
		})
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	config := Config{FailureThreshold: 2, SuccessThreshold: 1, ResetAfter: time.Minute}

	for name, cb := range breakers(t, config) {
		t.Run(name, func(t *testing.T) {
			cb.RecordFailure()
			cb.RecordSuccess()
			cb.RecordFailure()
			assert.Equal(t, Closed, cb.GetState())

			cb.RecordFailure()
			assert.Equal(t, Open, cb.GetState())
			cb.Reset()
			assert.Equal(t, Closed, cb.GetState())
		})
	}
}

func TestConfigFrom(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFrom(nil))

	got := ConfigFrom(&models.CircuitBreakerConfig{FailureThreshold: 3, ResetAfterMs: 500})
	assert.Equal(t, 3, got.FailureThreshold)
	assert.Equal(t, DefaultConfig().SuccessThreshold, got.SuccessThreshold)
	assert.Equal(t, 500*time.Millisecond, got.ResetAfter)
}
