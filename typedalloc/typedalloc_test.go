package typedalloc

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

type widget struct {
	a, b int64
}

func TestInstance(t *testing.T) {
	inst := NewInstance[widget](pool.Options{NextSize: 4, SystemAllocator: newFakeAllocator()})

	p, err := inst.Allocate(1)
	require.NoError(t, err)
	require.NotNil(t, p)

	inst.Deallocate(p, 1)

	p2, err := inst.Allocate(1)
	require.NoError(t, err)
	require.Equal(t, p, p2)
}

func TestInstanceZeroLength(t *testing.T) {
	inst := NewInstance[widget](pool.Options{NextSize: 4, SystemAllocator: newFakeAllocator()})
	p, err := inst.Allocate(0)
	require.NoError(t, err)
	require.Nil(t, p)
}

type singletonTestTag struct{}

func TestSingleton(t *testing.T) {
	var s Singleton[singletonTestTag, widget]
	s.Configure(SingletonOptions{NextSize: 4, ThreadSafe: true, SystemAllocator: newFakeAllocator()})

	p, err := s.Allocate(1)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.True(t, s.IsFrom(p))

	s.Deallocate(p, 1)
}

// widgetTwin has the same size as widget but is a distinct named type,
// to exercise the spec's sizeof(T)-not-T identity rule: two element
// types of equal size sharing a Tag must resolve to one process-wide
// pool, never two.
type widgetTwin struct {
	a, b int64
}

type sharedSizeTag struct{}

func TestSingletonSharesPoolAcrossEqualSizedTypes(t *testing.T) {
	var s1 Singleton[sharedSizeTag, widget]
	var s2 Singleton[sharedSizeTag, widgetTwin]
	s1.Configure(SingletonOptions{NextSize: 4, SystemAllocator: newFakeAllocator()})

	require.Same(t, s1.pool(), s2.pool(),
		"same tag and same element size must share one pool regardless of the Go type name")
}

type fastTestTag struct{}

func TestFast(t *testing.T) {
	var f Fast[fastTestTag, widget]
	f.Configure(SingletonOptions{NextSize: 4, ThreadSafe: true, SystemAllocator: newFakeAllocator()})

	single, err := f.Allocate(1)
	require.NoError(t, err)
	require.NotNil(t, single)
	f.Deallocate(single, 1)

	triple, err := f.Allocate(3)
	require.NoError(t, err)
	require.NotNil(t, triple)
	f.Deallocate(triple, 3)
}
