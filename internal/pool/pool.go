// Package pool provides reusable segment buffers for the stream adapters.
// Pooling keeps high-throughput transfers from allocating one buffer per
// wrapped source.
package pool

import (
	"sync"
)

const (
	// DefaultSegmentSize is the segment size used when a caller does not
	// specify one (64KB).
	DefaultSegmentSize = 64 * 1024

	// SmallBufferSize defines the size class for small buffers (64KB)
	SmallBufferSize = 64 * 1024
	// LargeBufferSize defines the size class for large buffers (1MB)
	LargeBufferSize = 1024 * 1024
)

var (
	small = &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, SmallBufferSize)
			return &buf
		},
	}
	large = &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, LargeBufferSize)
			return &buf
		},
	}
)

// Get returns a buffer with length size. Buffers up to LargeBufferSize come
// from a size-classed pool; larger requests are allocated directly.
func Get(size int) []byte {
	switch {
	case size <= SmallBufferSize:
		bufPtr := small.Get().(*[]byte)
		return (*bufPtr)[:size]
	case size <= LargeBufferSize:
		bufPtr := large.Get().(*[]byte)
		return (*bufPtr)[:size]
	default:
		return make([]byte, size)
	}
}

// Put returns a buffer to the pool matching its capacity class. Buffers that
// did not come from a pool are dropped.
func Put(buf []byte) {
	switch cap(buf) {
	case SmallBufferSize:
		b := buf[:cap(buf)]
		small.Put(&b)
	case LargeBufferSize:
		b := buf[:cap(buf)]
		large.Put(&b)
	}
}
