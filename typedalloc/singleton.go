package typedalloc

import (
	"unsafe"

	"github.com/pycpp/allocator/pool"
)

// PoolAllocatorTag is the default Tag for Singleton when callers don't
// need a type of their own to distinguish pools.
type PoolAllocatorTag struct{}

// Singleton is an allocator over a process-wide Pool, lazily built the
// first time it's used, keyed by Tag and T's size so unrelated
// packages allocating the same T don't share a pool unless they also
// share Tag; two element types of equal size under the same Tag share
// one pool. The underlying Pool is never closed: like the C++
// singleton_pool this translates, memory it hands out stays valid for
// the life of the process.
type Singleton[Tag any, T any] struct{}

// Configure forces the singleton Pool for (Tag, T) to be built with
// opts, if it has not been built yet. Calling it after the pool already
// exists has no effect; call it before the first Allocate if you need
// non-default settings.
func (Singleton[Tag, T]) Configure(opts SingletonOptions) {
	poolFor[Tag, T](opts)
}

func (Singleton[Tag, T]) pool() *pool.Pool {
	return poolFor[Tag, T](defaultSingletonOptions())
}

// Allocate returns n contiguous *T, ordered-mode.
func (s Singleton[Tag, T]) Allocate(n int64) (*T, error) {
	ptr := s.pool().OrderedAllocateN(n)
	if ptr == nil {
		if n == 0 {
			return nil, nil
		}
		return nil, pool.ErrAllocationFailure
	}
	return (*T)(ptr), nil
}

// Deallocate returns n contiguous *T, obtained from a single Allocate
// call, to the pool.
func (s Singleton[Tag, T]) Deallocate(p *T, n int64) {
	s.pool().OrderedDeallocateN(unsafe.Pointer(p), n)
}

// IsFrom reports whether p was handed out by this Singleton's pool.
func (s Singleton[Tag, T]) IsFrom(p *T) bool {
	return s.pool().IsFrom(unsafe.Pointer(p))
}
