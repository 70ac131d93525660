package circuitbreaker

import (
	"context"
	"fmt"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

type Config struct {
	FailureThreshold int
	SuccessThreshold int
	ResetAfter       time.Duration
}

// DefaultConfig opens after five consecutive failures and probes again after a minute
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		ResetAfter:       time.Minute,
	}
}

// ConfigFrom merges configured values over DefaultConfig
func ConfigFrom(cfg *models.CircuitBreakerConfig) Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	if cfg.FailureThreshold > 0 {
		out.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.SuccessThreshold > 0 {
		out.SuccessThreshold = cfg.SuccessThreshold
	}
	if cfg.ResetAfterMs > 0 {
		out.ResetAfter = time.Duration(cfg.ResetAfterMs) * time.Millisecond
	}
	return out
}

const (
	defaultTimeout = 1 * time.Second
)

// Transition results reported by a backend
const (
	noTransition = iota
	transitionedOpen
	transitionedClosed
	recordedHalfOpen
)

// backend holds breaker state; implementations must apply each record atomically
type backend interface {
	state(ctx context.Context) (State, time.Time, error)
	recordSuccess(ctx context.Context, successThreshold int, now time.Time) (int, error)
	recordFailure(ctx context.Context, failureThreshold int, now time.Time) (int, error)
	transition(ctx context.Context, from, to State, now time.Time) (bool, error)
	reset(ctx context.Context, now time.Time) error
}

// CircuitBreaker guards one upstream service. State lives in Redis when a client
// is supplied so replicas agree, otherwise in process memory.
type CircuitBreaker struct {
	backend     backend
	serviceName string
	config      Config
	now         func() time.Time
}

// New creates a breaker for serviceName; redisClient may be nil
func New(redisClient *redis.Client, serviceName string, config Config) *CircuitBreaker {
	var b backend
	if redisClient != nil {
		b = newRedisBackend(redisClient, serviceName)
	} else {
		b = &memoryBackend{}
	}

	return &CircuitBreaker{
		backend:     b,
		serviceName: serviceName,
		config:      config,
		now:         time.Now,
	}
}

// ServiceName returns the guarded service
func (cb *CircuitBreaker) ServiceName() string {
	return cb.serviceName
}

// CanExecute reports whether a call may proceed. An Open breaker moves to
// HalfOpen once ResetAfter has elapsed since the last failure.
func (cb *CircuitBreaker) CanExecute() bool {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	state, lastFailure, err := cb.backend.state(ctx)
	if err != nil {
		fiberlog.Errorf("CircuitBreaker: Failed to get state for %s, allowing execution: %v", cb.serviceName, err)
		return true
	}

	switch state {
	case Closed, HalfOpen:
		return true
	case Open:
		if cb.now().Sub(lastFailure) < cb.config.ResetAfter {
			return false
		}
		ok, err := cb.backend.transition(ctx, Open, HalfOpen, cb.now())
		if err != nil {
			fiberlog.Errorf("CircuitBreaker: %s state transition failed: %v", cb.serviceName, err)
			return false
		}
		if ok {
			fiberlog.Infof("CircuitBreaker: %s transitioned to HalfOpen, probing", cb.serviceName)
		}
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result, err := cb.backend.recordSuccess(ctx, cb.config.SuccessThreshold, cb.now())
	if err != nil {
		fiberlog.Errorf("CircuitBreaker: Failed to record success for %s: %v", cb.serviceName, err)
		return
	}

	switch result {
	case transitionedClosed:
		fiberlog.Infof("CircuitBreaker: %s transitioned to Closed state after success", cb.serviceName)
	case recordedHalfOpen:
		fiberlog.Infof("CircuitBreaker: %s recorded success in HalfOpen state", cb.serviceName)
	default:
		fiberlog.Debugf("CircuitBreaker: %s recorded success", cb.serviceName)
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result, err := cb.backend.recordFailure(ctx, cb.config.FailureThreshold, cb.now())
	if err != nil {
		fiberlog.Errorf("CircuitBreaker: Failed to record failure for %s: %v", cb.serviceName, err)
		return
	}

	if result == transitionedOpen {
		fiberlog.Warnf("CircuitBreaker: %s transitioned to Open state after failure", cb.serviceName)
	} else {
		fiberlog.Debugf("CircuitBreaker: %s recorded failure", cb.serviceName)
	}
}

func (cb *CircuitBreaker) GetState() State {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	state, _, err := cb.backend.state(ctx)
	if err != nil {
		fiberlog.Errorf("CircuitBreaker: Failed to get state, returning Closed: %v", err)
		return Closed
	}
	return state
}

func (cb *CircuitBreaker) Reset() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := cb.backend.reset(ctx, cb.now()); err != nil {
		fiberlog.Errorf("CircuitBreaker: Failed to reset state: %v", err)
		return
	}
	fiberlog.Infof("CircuitBreaker: Reset circuit breaker for service %s", cb.serviceName)
}
