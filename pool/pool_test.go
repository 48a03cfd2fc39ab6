package pool

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, opts Options) (*Pool, *heapAllocator) {
	t.Helper()
	alloc := newHeapAllocator()
	opts.SystemAllocator = alloc
	p := New(opts)
	t.Cleanup(func() { p.Close() })
	return p, alloc
}

func TestPool(t *testing.T) {
	t.Run("round trip without growth", func(t *testing.T) {
		p, alloc := newTestPool(t, Options{ChunkSize: 16, NextSize: 4})
		chunk := p.Allocate()
		require.NotNil(t, chunk)
		require.Equal(t, 1, alloc.liveBlocks())

		p.Deallocate(chunk)
		chunk2 := p.Allocate()
		require.Equal(t, chunk, chunk2)
		require.Equal(t, 1, alloc.liveBlocks(), "reusing a freed chunk must not call the allocator again")
	})

	t.Run("growth doubles next_size", func(t *testing.T) {
		p, _ := newTestPool(t, Options{ChunkSize: 16, NextSize: 4})
		for i := 0; i < 4; i++ {
			require.NotNil(t, p.Allocate())
		}
		require.Equal(t, int64(8), p.NextSize())

		for i := 0; i < 4; i++ {
			require.NotNil(t, p.Allocate())
		}
		require.Equal(t, int64(16), p.NextSize())
	})

	t.Run("ordered allocate keeps free list ascending", func(t *testing.T) {
		p, _ := newTestPool(t, Options{ChunkSize: 8, NextSize: 8})
		first := p.OrderedAllocate()
		require.NotNil(t, first)

		var last uintptr
		for i := 0; i < 6; i++ {
			c := p.OrderedAllocate()
			require.NotNil(t, c)
			require.Greater(t, uintptr(c), last)
			last = uintptr(c)
		}
	})

	t.Run("ordered allocate n returns a contiguous run", func(t *testing.T) {
		p, _ := newTestPool(t, Options{ChunkSize: 8, NextSize: 8})
		base := p.OrderedAllocateN(3)
		require.NotNil(t, base)

		for i := int64(1); i < 3; i++ {
			addr := unsafe.Pointer(uintptr(base) + uintptr(i*p.ChunkSize()))
			require.True(t, p.IsFrom(addr))
		}

		st := p.Stats()
		require.Equal(t, int64(5), st.FreeChunks)
	})

	t.Run("ordered allocate n larger than next_size raises it persistently", func(t *testing.T) {
		p, _ := newTestPool(t, Options{ChunkSize: 8, NextSize: 8})
		base := p.OrderedAllocateN(20)
		require.NotNil(t, base)

		for i := int64(1); i < 20; i++ {
			addr := unsafe.Pointer(uintptr(base) + uintptr(i*p.ChunkSize()))
			require.True(t, p.IsFrom(addr))
		}

		require.GreaterOrEqual(t, p.NextSize(), int64(20),
			"next_size must never end up smaller than the block just grown for n > next_size")
		require.Equal(t, int64(40), p.NextSize(), "next_size doubles from the raised value, not the stale one")
	})

	t.Run("release after full deallocation of an ordered block", func(t *testing.T) {
		p, alloc := newTestPool(t, Options{ChunkSize: 8, NextSize: 8})
		base := p.OrderedAllocateN(3)
		require.NotNil(t, base)

		for i := int64(0); i < 3; i++ {
			addr := unsafe.Pointer(uintptr(base) + uintptr(i*p.ChunkSize()))
			p.OrderedDeallocate(addr)
		}

		released := p.ReleaseMemory()
		require.True(t, released)
		require.Equal(t, 0, alloc.liveBlocks())
		require.False(t, p.IsFrom(base))
		require.Equal(t, int64(8), p.NextSize())
	})

	t.Run("purge drops every block unconditionally", func(t *testing.T) {
		p, alloc := newTestPool(t, Options{ChunkSize: 8, NextSize: 8})
		chunk := p.Allocate()
		require.NotNil(t, chunk)

		require.True(t, p.PurgeMemory())
		require.Equal(t, 0, alloc.liveBlocks())
		require.False(t, p.IsFrom(chunk))
		require.Equal(t, int64(8), p.NextSize())
	})

	t.Run("is_from rejects foreign addresses", func(t *testing.T) {
		p, _ := newTestPool(t, Options{ChunkSize: 8, NextSize: 8})
		var x int64
		require.False(t, p.IsFrom(unsafe.Pointer(&x)))
	})

	t.Run("max_size clamps block growth", func(t *testing.T) {
		p, _ := newTestPool(t, Options{ChunkSize: 16, NextSize: 4, MaxSize: 8})
		for i := 0; i < 4; i++ {
			require.NotNil(t, p.Allocate())
		}
		require.LessOrEqual(t, p.NextSize(), int64(8))
	})

	t.Run("growth halves and retries once on allocator failure", func(t *testing.T) {
		alloc := &halvingAllocator{failAbove: 150, inner: newHeapAllocator()}
		p := New(Options{ChunkSize: 16, NextSize: 16, SystemAllocator: alloc})
		t.Cleanup(func() { p.Close() })

		chunk := p.Allocate()
		require.NotNil(t, chunk, "growBlock should have halved next_size and retried successfully")
		require.Equal(t, int64(16), p.NextSize(), "next_size doubles again from the halved value after a successful grow")
	})

	t.Run("new panics without a SystemAllocator", func(t *testing.T) {
		require.Panics(t, func() {
			New(Options{ChunkSize: 8})
		})
	})

	t.Run("new panics on non-positive chunk size", func(t *testing.T) {
		require.Panics(t, func() {
			New(Options{ChunkSize: 0, SystemAllocator: newHeapAllocator()})
		})
	})
}

// halvingAllocator fails any request above failAbove bytes, so growBlock
// is forced through its halve-and-retry fallback.
type halvingAllocator struct {
	failAbove int64
	inner     *heapAllocator
}

func (h *halvingAllocator) Allocate(n int64) unsafe.Pointer {
	if n > h.failAbove {
		return nil
	}
	return h.inner.Allocate(n)
}

func (h *halvingAllocator) Deallocate(ptr unsafe.Pointer, n int64) {
	h.inner.Deallocate(ptr, n)
}
