package pool

import (
	"sync"
)

const (
	// CopyBufferSize is the size of buffers used to stream files through a digest (64KB)
	CopyBufferSize = 64 * 1024
)

// BufferPool manages reusable fixed-size buffers to reduce allocations.
// Chunked uploads keep one pool per chunk size so that at most one buffer
// per in-flight chunk is live at any time.
type BufferPool struct {
	size int
	pool *sync.Pool
}

// NewBufferPool creates a pool handing out buffers of exactly size bytes.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = CopyBufferSize
	}
	return &BufferPool{
		size: size,
		pool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
	}
}

// Size returns the buffer size served by the pool.
func (bp *BufferPool) Size() int {
	return bp.size
}

// Get returns a buffer of length Size from the pool.
// The caller is responsible for calling Put to return the buffer to the pool.
func (bp *BufferPool) Get() []byte {
	bufPtr := bp.pool.Get().(*[]byte)
	return (*bufPtr)[:bp.size]
}

// Put returns a buffer to the pool.
// Buffers of a different capacity are dropped so the pool never serves short buffers.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) != bp.size {
		return
	}
	buf = buf[:bp.size]
	bp.pool.Put(&buf)
}

// Global copy buffer pool shared by digest computation.
var copyBuffers = NewBufferPool(CopyBufferSize)

// GetCopyBuffer returns a copy buffer from the global pool.
func GetCopyBuffer() []byte {
	return copyBuffers.Get()
}

// PutCopyBuffer returns a copy buffer to the global pool.
func PutCopyBuffer(buf []byte) {
	copyBuffers.Put(buf)
}
