package cache

import (
	"context"
	"time"
)

// State classifies a key at read time
type State int

const (
	Absent State = iota
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// Entry is one memoized payload
type Entry struct {
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// Store persists entries. Implementations overwrite on Set and never merge.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Sweeper is implemented by stores that can drop entries created before a cutoff
type Sweeper interface {
	Sweep(ctx context.Context, before time.Time) (int, error)
}
