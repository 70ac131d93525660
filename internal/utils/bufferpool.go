package utils

import (
	"sync"

	"github.com/valyala/bytebufferpool"
)

// BufferPool hands out reusable byte buffers for prompt and payload assembly
type BufferPool struct {
	pool *bytebufferpool.Pool
}

var (
	globalPool     *BufferPool
	globalPoolOnce sync.Once
)

// NewBufferPool creates a new buffer pool
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: &bytebufferpool.Pool{},
	}
}

// Global returns the process-wide pool
func Global() *BufferPool {
	globalPoolOnce.Do(func() {
		globalPool = NewBufferPool()
	})
	return globalPool
}

// BuildString runs fn against a pooled buffer and returns what it wrote
func (bp *BufferPool) BuildString(fn func(buf *bytebufferpool.ByteBuffer)) string {
	buf := bp.pool.Get()
	defer bp.pool.Put(buf)

	fn(buf)
	return buf.String()
}

// BuildString uses the global pool
func BuildString(fn func(buf *bytebufferpool.ByteBuffer)) string {
	return Global().BuildString(fn)
}
