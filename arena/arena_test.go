package arena

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/pycpp/allocator/pool"
)

type fakeAllocator struct {
	mu     sync.Mutex
	blocks map[unsafe.Pointer][]byte
}

func newFakeAllocator() *fakeAllocator {
	return &fakeAllocator{blocks: make(map[unsafe.Pointer][]byte)}
}

func (f *fakeAllocator) Allocate(n int64) unsafe.Pointer {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	p := unsafe.Pointer(&buf[0])
	f.mu.Lock()
	f.blocks[p] = buf
	f.mu.Unlock()
	return p
}

func (f *fakeAllocator) Deallocate(ptr unsafe.Pointer, n int64) {
	f.mu.Lock()
	delete(f.blocks, ptr)
	f.mu.Unlock()
}

var _ pool.SystemAllocator = (*fakeAllocator)(nil)

func TestArena(t *testing.T) {
	t.Run("routes to the smallest fitting class", func(t *testing.T) {
		a := New(Options{
			ClassSizes:      []int64{16, 64, 256},
			NextSize:        4,
			SystemAllocator: newFakeAllocator(),
		})
		t.Cleanup(func() { a.Close() })

		p := a.Allocate(40)
		require.NotNil(t, p)
		require.Equal(t, 1, a.classFor(40))

		a.Deallocate(p, 40)
	})

	t.Run("oversized requests bypass every class", func(t *testing.T) {
		alloc := newFakeAllocator()
		a := New(Options{
			ClassSizes:      []int64{16, 64},
			NextSize:        4,
			SystemAllocator: alloc,
		})
		t.Cleanup(func() { a.Close() })

		p := a.Allocate(1024)
		require.NotNil(t, p)
		require.Equal(t, -1, a.classFor(1024))

		a.Deallocate(p, 1024)
	})

	t.Run("stats aggregate across classes", func(t *testing.T) {
		a := New(Options{
			ClassSizes:      []int64{16, 32},
			NextSize:        4,
			SystemAllocator: newFakeAllocator(),
		})
		t.Cleanup(func() { a.Close() })

		require.NotNil(t, a.Allocate(8))
		st := a.Stats()
		require.Equal(t, 2, st.Classes)
		require.GreaterOrEqual(t, st.Blocks, int64(1))
	})
}
