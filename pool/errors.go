package pool

import "errors"

var (
	// ErrEmpty is the panic value, in builds without the "release"
	// build tag, when a chunk is popped from an empty free list.
	ErrEmpty = errors.New("pool: segregated storage is empty")

	// ErrForeignChunk signals that a chunk handed to Deallocate /
	// OrderedDeallocate did not come from this Pool. Only checked in
	// builds without the "release" build tag; see precondition_debug.go.
	ErrForeignChunk = errors.New("pool: chunk does not belong to this pool")

	// ErrAllocationFailure is raised by the typedalloc facades when the
	// underlying Pool call returns a nil pointer for a non-zero request.
	ErrAllocationFailure = errors.New("pool: system allocator could not satisfy the backing block request")

	// ErrInvalidChunkCount is the panic value, in builds without the
	// "release" build tag, when DeallocateN/OrderedDeallocateN is given
	// a negative n. A positive n that differs from the one the chunks
	// were allocated with is not detected.
	ErrInvalidChunkCount = errors.New("pool: mismatched chunk count between allocate and deallocate")
)
