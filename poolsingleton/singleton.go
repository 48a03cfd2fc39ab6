// Package poolsingleton provides a process-wide pool.Pool keyed by a
// caller-supplied tag type plus the Pool's identity parameters, so
// unrelated packages can each get their own lazily-initialized
// singleton pool without naming collisions, while two callers that
// agree on every identity parameter share exactly one Pool - mirroring
// the C++ singleton_pool<Allocator, Tag, sizeof(T), NextSize, MaxSize,
// ThreadSafe> template, whose instantiations are identified by that
// whole parameter list, not by Tag alone.
package poolsingleton

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/pycpp/allocator/pool"
)

// entry holds one key's singleton state. initialized is checked with a
// plain atomic load before taking mu, so the common case (already
// initialized) never touches the mutex - the double-checked
// initialization boost::pool's singleton_pool performs with
// atomic<bool>, not sync.Once, because the second check must be
// observable without a lock in the already-initialized path.
type entry struct {
	mu          sync.Mutex
	initialized atomic.Bool
	pool        *pool.Pool
}

// registryKey is the identity tuple a Pool singleton is keyed by: the
// caller's tag type, plus the growth/concurrency parameters that would
// otherwise be silently pinned to whichever call happened to run
// first. Two Get calls under the same Tag that disagree on any of
// these fields get distinct Pools, never one masking the other's
// request.
type registryKey struct {
	tag        reflect.Type
	chunkSize  int64
	nextSize   int64
	maxSize    int64
	threadSafe bool
}

var registry sync.Map // map[registryKey]*entry

func keyFor[Tag any](opts pool.Options) registryKey {
	var zero Tag
	return registryKey{
		tag:        reflect.TypeOf(zero),
		chunkSize:  opts.ChunkSize,
		nextSize:   opts.NextSize,
		maxSize:    opts.MaxSize,
		threadSafe: opts.ThreadSafe,
	}
}

func entryFor[Tag any](opts pool.Options) *entry {
	key := keyFor[Tag](opts)
	if v, ok := registry.Load(key); ok {
		return v.(*entry)
	}
	v, _ := registry.LoadOrStore(key, &entry{})
	return v.(*entry)
}

// Get returns the singleton Pool for (Tag, opts.ChunkSize,
// opts.NextSize, opts.MaxSize, opts.ThreadSafe), constructing it from
// opts the first time that combination is seen. Two element types of
// the same size sharing a Tag and the same growth/concurrency settings
// get exactly one Pool between them, matching sizeof(T) (not T itself)
// being the template parameter in the C++ original.
func Get[Tag any](opts pool.Options) *pool.Pool {
	e := entryFor[Tag](opts)
	if e.initialized.Load() {
		return e.pool
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized.Load() {
		e.pool = pool.New(opts)
		e.initialized.Store(true)
	}
	return e.pool
}
