package models

import "time"

// FallbackMode defines the strategy for handling provider failures
type FallbackMode string

const (
	FallbackModeSequential FallbackMode = "sequential"
	FallbackModeRace       FallbackMode = "race"
)

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	FailureThreshold int `json:"failure_threshold,omitzero" yaml:"failure_threshold,omitempty"` // Number of failures before opening circuit
	SuccessThreshold int `json:"success_threshold,omitzero" yaml:"success_threshold,omitempty"` // Number of successes to close circuit
	ResetAfterMs     int `json:"reset_after_ms,omitzero" yaml:"reset_after_ms,omitempty"`       // Time to wait before trying to close circuit
}

// FallbackConfig holds the fallback configuration across text providers
type FallbackConfig struct {
	Mode           FallbackMode          `json:"mode,omitzero" yaml:"mode,omitempty"`             // sequential (default) or race
	TimeoutMs      int                   `json:"timeout_ms,omitzero" yaml:"timeout_ms,omitempty"` // Race timeout in milliseconds
	CircuitBreaker *CircuitBreakerConfig `json:"circuit_breaker,omitzero" yaml:"circuit_breaker,omitempty"`
}

// RetryConfig controls the linear backoff used for primary text generation
type RetryConfig struct {
	Attempts    int `json:"attempts,omitzero" yaml:"attempts,omitempty"`
	BaseDelayMs int `json:"base_delay_ms,omitzero" yaml:"base_delay_ms,omitempty"`
}

// GetAttempts returns the attempt budget, three by default
func (r RetryConfig) GetAttempts() int {
	if r.Attempts <= 0 {
		return 3
	}
	return r.Attempts
}

// GetBaseDelay returns the delay unit multiplied by the attempt number
func (r RetryConfig) GetBaseDelay() time.Duration {
	if r.BaseDelayMs <= 0 {
		return 400 * time.Millisecond
	}
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// FallbackResult represents the result of a provider execution attempt
type FallbackResult struct {
	Success  bool
	Provider string
	Text     string
	Error    error
	Duration time.Duration
}
