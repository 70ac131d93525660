package cache

import (
	"context"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/singleflight"
)

// Observer receives the state of every lookup
type Observer interface {
	ObserveCacheLookup(state string)
}

// ComputeFunc produces a payload on a miss
type ComputeFunc func(ctx context.Context) ([]byte, error)

// DefaultComputeTimeout bounds a computation once it no longer follows its caller
const DefaultComputeTimeout = 2 * time.Minute

// Memo is a cache-aside wrapper with a fixed freshness window.
// Per key: Absent -> Fresh -> Stale -> (overwritten) -> Fresh.
type Memo struct {
	store    Store
	ttl      time.Duration
	now      func() time.Time
	dedupe   bool
	group    singleflight.Group
	observer Observer

	computeTimeout time.Duration
}

// Option configures a Memo
type Option func(*Memo)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(m *Memo) { m.now = now }
}

// WithDedupe collapses concurrent misses for the same key into one computation
func WithDedupe(enabled bool) Option {
	return func(m *Memo) { m.dedupe = enabled }
}

// WithComputeTimeout bounds detached computations; d <= 0 keeps the default
func WithComputeTimeout(d time.Duration) Option {
	return func(m *Memo) {
		if d > 0 {
			m.computeTimeout = d
		}
	}
}

// WithObserver reports lookup states, e.g. to Prometheus
func WithObserver(o Observer) Option {
	return func(m *Memo) { m.observer = o }
}

// New creates a Memo over store with the given freshness window
func New(store Store, ttl time.Duration, opts ...Option) *Memo {
	m := &Memo{
		store:          store,
		ttl:            ttl,
		now:            time.Now,
		computeTimeout: DefaultComputeTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the freshness window
func (m *Memo) TTL() time.Duration {
	return m.ttl
}

// Classify returns the state of an entry relative to the current clock
func (m *Memo) Classify(entry Entry, found bool) State {
	if !found {
		return Absent
	}
	if m.now().Sub(entry.CreatedAt) < m.ttl {
		return Fresh
	}
	return Stale
}

// Lookup reads a key and classifies it
func (m *Memo) Lookup(ctx context.Context, key string) (Entry, State, error) {
	entry, found, err := m.store.Get(ctx, key)
	if err != nil {
		return Entry{}, Absent, err
	}
	return entry, m.Classify(entry, found), nil
}

// Put overwrites key with payload stamped at the current time
func (m *Memo) Put(ctx context.Context, key string, payload []byte) (Entry, error) {
	entry := Entry{Key: key, Payload: payload, CreatedAt: m.now()}
	return entry, m.store.Set(ctx, entry)
}

// Delete removes one key
func (m *Memo) Delete(ctx context.Context, key string) error {
	return m.store.Delete(ctx, key)
}

// Clear removes every key
func (m *Memo) Clear(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// GetOrCompute returns the fresh payload for key, or computes and stores a new one.
// The returned state is what the lookup observed before any computation.
// A failed computation stores nothing.
//
// The computation is detached from ctx: a caller that gives up returns ctx.Err()
// while the computation runs on, bounded by the compute timeout, and its result
// is still written. Joined callers are unaffected by the starter leaving.
func (m *Memo) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) ([]byte, State, error) {
	entry, state, err := m.Lookup(ctx, key)
	if err != nil {
		fiberlog.Warnf("Memo lookup for %s failed, recomputing: %v", key, err)
		state = Absent
	}
	m.observe(state)

	if state == Fresh {
		return entry.Payload, Fresh, nil
	}

	detached := context.WithoutCancel(ctx)
	run := func() (any, error) {
		computeCtx, cancel := context.WithTimeout(detached, m.computeTimeout)
		defer cancel()
		return m.computeAndStore(computeCtx, key, compute)
	}

	var results <-chan singleflight.Result
	if m.dedupe {
		results = m.group.DoChan(key, run)
	} else {
		ch := make(chan singleflight.Result, 1)
		go func() {
			v, err := run()
			ch <- singleflight.Result{Val: v, Err: err}
		}()
		results = ch
	}

	select {
	case <-ctx.Done():
		fiberlog.Debugf("Memo caller for %s left before the computation finished: %v", key, ctx.Err())
		return nil, state, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, state, res.Err
		}
		if res.Shared {
			fiberlog.Debugf("Memo joined in-flight computation for %s", key)
		}
		return res.Val.([]byte), state, nil
	}
}

func (m *Memo) computeAndStore(ctx context.Context, key string, compute ComputeFunc) ([]byte, error) {
	payload, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := m.Put(ctx, key, payload); err != nil {
		fiberlog.Warnf("Memo write for %s failed, serving uncached result: %v", key, err)
	}
	return payload, nil
}

// StartSweeper periodically removes entries older than the freshness window.
// It is a no-op for stores that cannot sweep or when interval <= 0.
func (m *Memo) StartSweeper(ctx context.Context, interval time.Duration) {
	sweeper, ok := m.store.(Sweeper)
	if !ok || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := sweeper.Sweep(ctx, m.now().Add(-m.ttl))
				if err != nil {
					fiberlog.Warnf("Memo sweep failed: %v", err)
					continue
				}
				if removed > 0 {
					fiberlog.Debugf("Memo sweep removed %d stale entries", removed)
				}
			}
		}
	}()
}

func (m *Memo) observe(state State) {
	if m.observer != nil {
		m.observer.ObserveCacheLookup(state.String())
	}
}
