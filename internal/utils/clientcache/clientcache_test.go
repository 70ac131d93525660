package clientcache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct{ id int64 }

func TestGetOrCreate_BuildsOncePerKey(t *testing.T) {
	cache := New[*fakeClient]()
	var built atomic.Int64

	var wg sync.WaitGroup
	results := make([]*fakeClient, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := cache.GetOrCreate("k", func() (*fakeClient, error) {
				return &fakeClient{id: built.Add(1)}, nil
			})
			assert.NoError(t, err)
			results[i] = client
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), built.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestGetOrCreate_FactoryErrorIsNotCached(t *testing.T) {
	cache := New[*fakeClient]()

	_, err := cache.GetOrCreate("k", func() (*fakeClient, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	client, err := cache.GetOrCreate("k", func() (*fakeClient, error) {
		return &fakeClient{id: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), client.id)
}

func TestDeleteAndClear(t *testing.T) {
	cache := New[*fakeClient]()
	calls := 0
	factory := func() (*fakeClient, error) {
		calls++
		return &fakeClient{id: int64(calls)}, nil
	}

	_, _ = cache.GetOrCreate("a", factory)
	cache.Delete("a")
	_, _ = cache.GetOrCreate("a", factory)
	cache.Clear()
	_, _ = cache.GetOrCreate("a", factory)

	assert.Equal(t, 3, calls)
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("sk-1", "https://x"), Key("sk-1", "https://x"))
	assert.NotEqual(t, Key("sk-1", "https://x"), Key("sk-2", "https://x"))
	assert.Len(t, Key("a"), 32)
}
