package pool

import (
	"sync"
	"unsafe"
)

// heapAllocator is a SystemAllocator backed by the Go heap instead of
// cgo, so the pool package's tests don't need a C toolchain. It keeps
// every outstanding block pinned in a map, since nothing else in the
// program holds a Go-visible reference to memory reached only through
// unsafe.Pointer arithmetic.
type heapAllocator struct {
	mu     sync.Mutex
	blocks map[unsafe.Pointer][]byte
}

func newHeapAllocator() *heapAllocator {
	return &heapAllocator{blocks: make(map[unsafe.Pointer][]byte)}
}

func (h *heapAllocator) Allocate(n int64) unsafe.Pointer {
	buf := make([]byte, n)
	p := unsafe.Pointer(&buf[0])
	h.mu.Lock()
	h.blocks[p] = buf
	h.mu.Unlock()
	return p
}

func (h *heapAllocator) Deallocate(ptr unsafe.Pointer, n int64) {
	h.mu.Lock()
	delete(h.blocks, ptr)
	h.mu.Unlock()
}

func (h *heapAllocator) liveBlocks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blocks)
}
