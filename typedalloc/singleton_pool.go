// Package typedalloc provides T-typed facades over pool.Pool: Instance
// (an allocator wrapping a caller-owned Pool), Singleton (a
// process-wide Pool keyed by a tag type and element size), and Fast (a
// singleton variant optimized for single-element allocation).
package typedalloc

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/pycpp/allocator/pool"
	"github.com/pycpp/allocator/poolsingleton"
	"github.com/pycpp/allocator/sysalloc"
)

// SingletonOptions configures the Pool a Singleton or Fast facade
// lazily constructs. The Pool's ChunkSize is always the element type's
// size. Without a Configure call the facades use NextSize 32, no
// MaxSize, ThreadSafe true, and a CRT SystemAllocator, matching the
// defaults of the allocator templates these facades translate. Options
// passed to Configure are used as given: a zero NextSize becomes 32 in
// pool.New, and a nil SystemAllocator makes pool.New panic.
type SingletonOptions struct {
	NextSize        int64
	MaxSize         int64
	ThreadSafe      bool
	SystemAllocator pool.SystemAllocator
}

func defaultSingletonOptions() SingletonOptions {
	return SingletonOptions{
		NextSize:        32,
		ThreadSafe:      true,
		SystemAllocator: sysalloc.CRT{},
	}
}

// configKey identifies a (Tag, element size) pair for the purpose of
// pinning the SingletonOptions its pool was first built with. Growth
// and thread-safety parameters are part of poolsingleton's identity
// tuple (see poolsingleton.Get), so Configure and the no-arg pool()
// accessor below must agree on the exact same values every time they
// resolve a Pool for the same (Tag, T) - otherwise a plain Allocate()
// call made after an explicit Configure would compute a different key
// and silently get handed a second, unconfigured Pool.
type configKey struct {
	tag  reflect.Type
	size int64
}

var configRegistry sync.Map // map[configKey]SingletonOptions

// resolveOptions returns the SingletonOptions (Tag, T)'s pool was
// first built with, recording candidate as that value if none has been
// recorded yet.
func resolveOptions[Tag any, T any](candidate SingletonOptions) SingletonOptions {
	var zeroTag Tag
	var zeroT T
	key := configKey{tag: reflect.TypeOf(zeroTag), size: int64(unsafe.Sizeof(zeroT))}
	v, _ := configRegistry.LoadOrStore(key, candidate)
	return v.(SingletonOptions)
}

// poolFor resolves the singleton Pool for (Tag, T) through
// poolsingleton, which keys it by Tag plus the element size and
// growth/concurrency parameters below - never by T itself. Two
// distinct T of the same size, same Tag, and matching NextSize/
// MaxSize/ThreadSafe get exactly one Pool between them.
func poolFor[Tag any, T any](opts SingletonOptions) *pool.Pool {
	resolved := resolveOptions[Tag, T](opts)
	var zero T
	return poolsingleton.Get[Tag](pool.Options{
		ChunkSize:       int64(unsafe.Sizeof(zero)),
		NextSize:        resolved.NextSize,
		MaxSize:         resolved.MaxSize,
		ThreadSafe:      resolved.ThreadSafe,
		SystemAllocator: resolved.SystemAllocator,
	})
}
