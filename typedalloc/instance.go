package typedalloc

import (
	"unsafe"

	"github.com/pycpp/allocator/pool"
)

// Instance is an allocator wrapping a Pool the caller constructs and
// owns. Unlike the C++ instance_pool, which refcounts a shared pool
// object because C++ has no garbage collector, Instance simply holds a
// *pool.Pool: Go's GC keeps the Pool alive for as long as any Instance
// built from it is reachable, so sharing one Pool across several
// Instance values (or goroutines, if built with ThreadSafe) needs no
// extra bookkeeping. Close the underlying Pool explicitly to force
// deterministic release of its system-allocated blocks.
type Instance[T any] struct {
	p *pool.Pool
}

// NewInstance builds a Pool sized for T from opts (ChunkSize is
// overridden with T's size) and wraps it in an Instance.
func NewInstance[T any](opts pool.Options) *Instance[T] {
	var zero T
	opts.ChunkSize = int64(unsafe.Sizeof(zero))
	return &Instance[T]{p: pool.New(opts)}
}

// WrapInstance wraps an already-constructed Pool. The Pool's ChunkSize
// must equal unsafe.Sizeof(T); callers that need several element types
// sharing one arena should build distinct Instances, one per type,
// each over its own Pool.
func WrapInstance[T any](p *pool.Pool) *Instance[T] {
	return &Instance[T]{p: p}
}

// Pool returns the underlying Pool, for sharing it with another
// Instance or inspecting its Stats.
func (a *Instance[T]) Pool() *pool.Pool { return a.p }

// Allocate returns n contiguous *T, ordered-mode. It returns
// pool.ErrAllocationFailure if the Pool could not satisfy a non-zero
// request.
func (a *Instance[T]) Allocate(n int64) (*T, error) {
	ptr := a.p.OrderedAllocateN(n)
	if ptr == nil {
		if n == 0 {
			return nil, nil
		}
		return nil, pool.ErrAllocationFailure
	}
	return (*T)(ptr), nil
}

// Deallocate returns n contiguous *T, obtained from a single Allocate
// call, to the Pool.
func (a *Instance[T]) Deallocate(p *T, n int64) {
	a.p.OrderedDeallocateN(unsafe.Pointer(p), n)
}
