// Package sysalloc provides pool.SystemAllocator implementations backed
// by real memory sources.
package sysalloc

//#include <stdlib.h>
import "C"

import "unsafe"

// CRT is a pool.SystemAllocator backed by the C runtime's malloc/free.
// It is the default SystemAllocator of arena.New and the typedalloc
// singleton facades (pool.New itself has no default): blocks obtained
// through it live outside the Go heap and outside the garbage
// collector's view, so Pool.Close/PurgeMemory must run for them to ever
// be reclaimed.
type CRT struct{}

// Allocate returns n bytes from C.malloc, or nil if the allocation
// fails.
func (CRT) Allocate(n int64) unsafe.Pointer {
	if n <= 0 {
		return nil
	}
	return C.malloc(C.size_t(n))
}

// Deallocate returns ptr, previously obtained from Allocate, to the C
// runtime. n is accepted to satisfy pool.SystemAllocator but unused:
// free() does not need the original size.
func (CRT) Deallocate(ptr unsafe.Pointer, n int64) {
	C.free(ptr)
}
