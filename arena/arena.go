// Package arena groups several pool.Pool instances into size classes,
// so a caller allocating objects of varying size can still get
// segregated-storage behavior instead of falling back to a general
// -purpose allocator for anything that doesn't fit one fixed chunk
// size.
package arena

import (
	"sort"
	"unsafe"

	"github.com/pycpp/allocator/pool"
	"github.com/pycpp/allocator/sysalloc"
)

// ArenaStats aggregates Stats across every size class in an Arena.
type ArenaStats struct {
	Classes   int
	Blocks    int64
	FreeSpace int64
}

// Arena routes allocation requests to the smallest size-class Pool
// that can satisfy them, falling back to the SystemAllocator directly
// for requests too large for any class.
type Arena struct {
	classes []int64 // ascending chunk sizes, one Pool per entry
	pools   []*pool.Pool
	sys     pool.SystemAllocator
}

// Options configures an Arena.
type Options struct {
	// ClassSizes lists the chunk size of each size class; it is sorted
	// ascending internally. Requests larger than the largest class
	// bypass every Pool and go straight to SystemAllocator.
	ClassSizes []int64
	NextSize   int64
	MaxSize    int64
	ThreadSafe bool
	// SystemAllocator backs every size class and the direct large
	// -request path. Defaults to sysalloc.CRT{} when nil.
	SystemAllocator pool.SystemAllocator
}

// New builds an Arena with one Pool per class size. It panics if
// ClassSizes is empty.
func New(opts Options) *Arena {
	if len(opts.ClassSizes) == 0 {
		panic("arena: Options.ClassSizes must not be empty")
	}
	sys := opts.SystemAllocator
	if sys == nil {
		sys = sysalloc.CRT{}
	}
	classes := append([]int64(nil), opts.ClassSizes...)
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	a := &Arena{classes: classes, sys: sys}
	for _, size := range classes {
		a.pools = append(a.pools, pool.New(pool.Options{
			ChunkSize:       size,
			NextSize:        opts.NextSize,
			MaxSize:         opts.MaxSize,
			ThreadSafe:      opts.ThreadSafe,
			SystemAllocator: sys,
		}))
	}
	return a
}

// classFor returns the index of the smallest class able to hold size,
// or -1 if size exceeds every class.
func (a *Arena) classFor(size int64) int {
	for i, c := range a.classes {
		if size <= c {
			return i
		}
	}
	return -1
}

// Allocate returns size bytes from the smallest fitting size class, or
// directly from the SystemAllocator if size exceeds every class.
func (a *Arena) Allocate(size int64) unsafe.Pointer {
	if i := a.classFor(size); i >= 0 {
		return a.pools[i].Allocate()
	}
	return a.sys.Allocate(size)
}

// Deallocate returns ptr, obtained from Allocate with the same size, to
// its size class (or the SystemAllocator, for oversized requests).
func (a *Arena) Deallocate(ptr unsafe.Pointer, size int64) {
	if i := a.classFor(size); i >= 0 {
		a.pools[i].Deallocate(ptr)
		return
	}
	a.sys.Deallocate(ptr, size)
}

// Close releases every size class's outstanding blocks.
func (a *Arena) Close() error {
	for _, p := range a.pools {
		p.Close()
	}
	return nil
}

// Stats aggregates Stats across every size class.
func (a *Arena) Stats() ArenaStats {
	st := ArenaStats{Classes: len(a.pools)}
	for _, p := range a.pools {
		s := p.Stats()
		st.Blocks += s.Blocks
		st.FreeSpace += s.FreeChunks
	}
	return st
}
