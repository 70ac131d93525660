package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. With maxEntries == 0 it only grows.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	maxEntries int
}

// NewMemoryStore creates an in-memory store; maxEntries <= 0 means unbounded
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]Entry),
		maxEntries: maxEntries,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	entry.Payload = append([]byte(nil), entry.Payload...)
	return entry, true, nil
}

func (s *MemoryStore) Set(_ context.Context, entry Entry) error {
	entry.Payload = append([]byte(nil), entry.Payload...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.Key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.entries[entry.Key] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	return nil
}

// Sweep removes entries created before the cutoff
func (s *MemoryStore) Sweep(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if entry.CreatedAt.Before(before) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, entry := range s.entries {
		if !found || entry.CreatedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = key, entry.CreatedAt, true
		}
	}
	if found {
		delete(s.entries, oldestKey)
	}
}
