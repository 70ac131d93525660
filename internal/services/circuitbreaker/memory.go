package circuitbreaker

import (
	"context"
	"sync"
	"time"
)

type memoryBackend struct {
	mu           sync.Mutex
	current      State
	failureCount int
	successCount int
	lastFailure  time.Time
	lastChange   time.Time
}

func (m *memoryBackend) state(context.Context) (State, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.lastFailure, nil
}

func (m *memoryBackend) recordSuccess(_ context.Context, successThreshold int, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failureCount = 0
	if m.current != HalfOpen {
		return noTransition, nil
	}

	m.successCount++
	if m.successCount >= successThreshold {
		m.current = Closed
		m.successCount = 0
		m.lastChange = now
		return transitionedClosed, nil
	}
	return recordedHalfOpen, nil
}

func (m *memoryBackend) recordFailure(_ context.Context, failureThreshold int, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failureCount++
	m.lastFailure = now

	if (m.current == Closed && m.failureCount >= failureThreshold) || m.current == HalfOpen {
		m.current = Open
		m.lastChange = now
		m.successCount = 0
		return transitionedOpen, nil
	}
	return noTransition, nil
}

func (m *memoryBackend) transition(_ context.Context, from, to State, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != from {
		return false, nil
	}
	m.current = to
	m.lastChange = now
	if to != HalfOpen {
		m.successCount = 0
	}
	return true, nil
}

func (m *memoryBackend) reset(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = Closed
	m.failureCount = 0
	m.successCount = 0
	m.lastChange = now
	return nil
}
