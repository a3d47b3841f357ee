package recdec

import "sync"

// blockBuffer is a reusable scratch buffer that a block framing reader
// decompresses one block's payload into, so that repeated calls to advance
// through a row-format container reuse one backing array instead of
// allocating per block.
type blockBuffer struct {
	Bytes []byte
}

// Reset clears the buffer contents but preserves allocated memory.
func (b *blockBuffer) Reset() {
	b.Bytes = b.Bytes[:0]
}

// grow ensures the buffer has at least size bytes of capacity, starting
// from an empty length, reusing the existing backing array when possible.
func (b *blockBuffer) grow(size int) {
	if cap(b.Bytes) < size {
		b.Bytes = make([]byte, 0, size)
		return
	}
	b.Bytes = b.Bytes[:0]
}

var blockBufferPool = sync.Pool{
	New: func() any { return &blockBuffer{} },
}

// getBlockBuffer obtains a reset blockBuffer from the pool. Call
// putBlockBuffer when finished with it.
func getBlockBuffer() *blockBuffer {
	b := blockBufferPool.Get().(*blockBuffer)
	b.Reset()
	return b
}

// putBlockBuffer releases the buffer back to the pool. Using the buffer
// after this call results in undefined behavior.
func putBlockBuffer(b *blockBuffer) {
	blockBufferPool.Put(b)
}
