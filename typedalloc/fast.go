package typedalloc

import (
	"unsafe"

	"github.com/pycpp/allocator/pool"
)

// FastTag is the default Tag for Fast; distinct from PoolAllocatorTag
// so a Singleton[PoolAllocatorTag, T] and a Fast[FastTag, T] never
// share a pool even for the same T.
type FastTag struct{}

// Fast is a singleton allocator optimized for the common case of
// allocating one T at a time: single-element requests take the
// unordered Pool.Allocate/Deallocate fast path, while multi-element
// requests fall back to the ordered path needed for contiguity.
// Mixing the two paths means ReleaseMemory is not reliable on a Fast
// pool; use Singleton instead if block reclamation matters.
type Fast[Tag any, T any] struct{}

// Configure forces the singleton Pool for (Tag, T) to be built with
// opts, if it has not been built yet.
func (Fast[Tag, T]) Configure(opts SingletonOptions) {
	poolFor[Tag, T](opts)
}

func (Fast[Tag, T]) pool() *pool.Pool {
	return poolFor[Tag, T](defaultSingletonOptions())
}

// Allocate returns n contiguous *T. n == 1 takes the unordered fast
// path; n > 1 takes the ordered path.
func (f Fast[Tag, T]) Allocate(n int64) (*T, error) {
	p := f.pool()
	var ptr unsafe.Pointer
	if n == 1 {
		ptr = p.Allocate()
	} else {
		ptr = p.OrderedAllocateN(n)
	}
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
func (f Fast[Tag, T]) Deallocate(p *T, n int64) {
	pl := f.pool()
	if n == 1 {
		pl.Deallocate(unsafe.Pointer(p))
	} else {
		pl.OrderedDeallocateN(unsafe.Pointer(p), n)
	}
}
