package pool

import (
	"unsafe"

	"github.com/pycpp/allocator/synclock"
)

// Options configures a Pool.
type Options struct {
	// ChunkSize is the requested size, in bytes, of each chunk the Pool
	// hands out. The Pool rounds it up to roundedChunkSize internally;
	// ChunkSize() on the constructed Pool reports the rounded value.
	ChunkSize int64

	// NextSize is the number of chunks the first grown block holds, and
	// the value nextSize resets to after ReleaseMemory or PurgeMemory. It
	// defaults to 32 when zero.
	NextSize int64

	// MaxSize, when non-zero, caps the doubling of nextSize after each
	// grown block at maxSize*requestedSize/chunkSize chunks. It does not
	// reduce the initial NextSize, and OrderedAllocateN(n) still grows a
	// block of at least n chunks. Zero means unbounded.
	MaxSize int64

	// ThreadSafe selects a synclock.Mutex default Lock when Lock is nil.
	// When false (and Lock is nil) a synclock.NoOp is used instead.
	ThreadSafe bool

	// Lock brackets every Pool critical section. If nil, one is chosen
	// from ThreadSafe.
	Lock Lock

	// SystemAllocator supplies and reclaims raw blocks. Required.
	SystemAllocator SystemAllocator
}

// Stats is a read-only snapshot of a Pool's bookkeeping state.
type Stats struct {
	Blocks     int64
	FreeChunks int64
	NextSize   int64
	StartSize  int64
	MaxSize    int64
}

// Pool is a segregated-storage chunk allocator: it carves large raw
// blocks obtained from a SystemAllocator into fixed-size chunks served
// through a free list.
type Pool struct {
	mu  Lock
	sys SystemAllocator

	storage segregatedStorage
	blocks  blockList

	chunkSize     int64 // rounded chunk size, what callers actually receive
	requestedSize int64 // Options.ChunkSize, pre-rounding
	nextSize      int64
	startSize     int64
	maxSize       int64
}

// New constructs a Pool. It panics if SystemAllocator is nil or
// ChunkSize is not positive.
func New(opts Options) *Pool {
	if opts.SystemAllocator == nil {
		panic("pool: Options.SystemAllocator must not be nil")
	}
	if opts.ChunkSize <= 0 {
		panic("pool: Options.ChunkSize must be positive")
	}
	nextSize := opts.NextSize
	if nextSize <= 0 {
		nextSize = 32
	}
	lock := opts.Lock
	if lock == nil {
		if opts.ThreadSafe {
			lock = &synclock.Mutex{}
		} else {
			lock = synclock.NoOp{}
		}
	}
	return &Pool{
		mu:            lock,
		sys:           opts.SystemAllocator,
		chunkSize:     roundedChunkSize(opts.ChunkSize),
		requestedSize: opts.ChunkSize,
		nextSize:      nextSize,
		startSize:     nextSize,
		maxSize:       opts.MaxSize,
	}
}

// ChunkSize returns the rounded chunk size chunks are actually served
// at; it may be larger than Options.ChunkSize.
func (p *Pool) ChunkSize() int64 { return p.chunkSize }

// NextSize returns the number of chunks the next grown block will hold,
// absent max-size clamping.
func (p *Pool) NextSize() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextSize
}

// SetNextSize overrides the number of chunks the next grown block will
// hold.
func (p *Pool) SetNextSize(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextSize = n
}

// StartSize returns the value NextSize resets to after ReleaseMemory or
// PurgeMemory.
func (p *Pool) StartSize() int64 {
	return p.startSize
}

// MaxSize returns the configured block-size cap, in chunks; zero means
// unbounded.
func (p *Pool) MaxSize() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxSize
}

// SetMaxSize overrides the block-size cap.
func (p *Pool) SetMaxSize(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxSize = n
}

// growBlock asks the SystemAllocator for a new block able to hold at
// least requestedChunks chunks, growing nextSize for the block after
// it. If the allocator refuses and nextSize is large enough to halve,
// it retries exactly once at half size (never below requestedChunks);
// a second failure gives up and returns the zero podPtr.
func (p *Pool) growBlock(requestedChunks int64) podPtr {
	if p.nextSize < requestedChunks {
		p.nextSize = requestedChunks
	}
	retried := false
	for {
		chunks := p.nextSize
		blockBytes := chunks*p.chunkSize + trailerSize
		mem := p.sys.Allocate(blockBytes)
		if mem != nil {
			log.Debug().Int64("chunks", chunks).Int64("bytes", blockBytes).Msg("grew block")
			blk := podPtr{ptr: mem, size: blockBytes}
			p.advanceNextSize()
			return blk
		}
		if retried || p.nextSize <= 4 {
			log.Error().Int64("requested_chunks", requestedChunks).Msg("allocation failure")
			return podPtr{}
		}
		half := p.nextSize / 2
		if half < requestedChunks {
			half = requestedChunks
		}
		p.nextSize = half
		retried = true
	}
}

// advanceNextSize doubles nextSize for the block after the one just
// grown, clamped by maxSize when set.
func (p *Pool) advanceNextSize() {
	next := p.nextSize * 2
	if p.maxSize != 0 {
		clamp := p.maxSize * p.requestedSize / p.chunkSize
		if next > clamp {
			next = clamp
		}
	}
	p.nextSize = next
}

// Allocate returns one chunk, growing the pool if the free list is
// empty. It returns nil if growth fails.
func (p *Pool) Allocate() unsafe.Pointer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.storage.empty() {
		blk := p.growBlock(1)
		if !blk.valid() {
			return nil
		}
		p.blocks.prepend(blk)
		p.storage.addBlock(blk.ptr, blk.elementSize(), p.chunkSize)
	}
	return p.storage.allocate()
}

// OrderedAllocate is Allocate, but keeps the free list and block list in
// address order, a prerequisite for ReleaseMemory and *N operations.
// Pools must not mix Allocate/Deallocate with OrderedAllocate/
// OrderedDeallocate: doing so breaks the ordering invariant silently.
func (p *Pool) OrderedAllocate() unsafe.Pointer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.storage.empty() {
		blk := p.growBlock(1)
		if !blk.valid() {
			return nil
		}
		p.blocks.spliceOrdered(blk)
		p.storage.addOrderedBlock(blk.ptr, blk.elementSize(), p.chunkSize)
	}
	return p.storage.allocate()
}

// OrderedAllocateN returns n contiguous chunks, or nil if n is zero or
// growth fails. It requires the pool to have been used only through the
// Ordered* methods so far.
func (p *Pool) OrderedAllocateN(n int64) unsafe.Pointer {
	if n == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if ret := p.storage.allocateN(n, p.chunkSize); ret != nil {
		return ret
	}
	blk := p.growBlock(n)
	if !blk.valid() {
		return nil
	}
	p.blocks.spliceOrdered(blk)
	p.storage.addOrderedBlock(blk.ptr, blk.elementSize(), p.chunkSize)
	return p.storage.allocateN(n, p.chunkSize)
}

// Deallocate returns chunk, obtained from Allocate, to the free list.
func (p *Pool) Deallocate(chunk unsafe.Pointer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	checkForeignChunk(p, chunk)
	p.storage.deallocate(chunk)
}

// OrderedDeallocate returns chunk, obtained from OrderedAllocate or
// OrderedAllocateN, to the free list, preserving address order.
func (p *Pool) OrderedDeallocate(chunk unsafe.Pointer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	checkForeignChunk(p, chunk)
	p.storage.orderedDeallocate(chunk)
}

// DeallocateN returns n contiguous chunks, obtained from a single
// OrderedAllocateN(n) call, to the free list.
func (p *Pool) DeallocateN(chunks unsafe.Pointer, n int64) {
	if n == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	precondition(func() bool { return n > 0 }, ErrInvalidChunkCount)
	checkForeignChunk(p, chunks)
	p.storage.deallocateN(chunks, n, p.chunkSize)
}

// OrderedDeallocateN is DeallocateN, preserving address order.
func (p *Pool) OrderedDeallocateN(chunks unsafe.Pointer, n int64) {
	if n == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	precondition(func() bool { return n > 0 }, ErrInvalidChunkCount)
	checkForeignChunk(p, chunks)
	p.storage.orderedDeallocateN(chunks, n, p.chunkSize)
}

// IsFrom reports whether chunk was handed out by this Pool. It scans
// the block list, so it costs O(blocks).
func (p *Pool) IsFrom(chunk unsafe.Pointer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isFromLocked(chunk)
}

func (p *Pool) isFromLocked(chunk unsafe.Pointer) bool {
	addr := uintptr(chunk)
	for cur := p.blocks.head; cur.valid(); cur = cur.next() {
		start := uintptr(cur.ptr)
		if addr >= start && addr < start+uintptr(cur.elementSize()) {
			return true
		}
	}
	return false
}

// ReleaseMemory returns every fully-free block to the SystemAllocator
// and resets nextSize to startSize. It relies on ordered-mode usage
// (OrderedAllocate/OrderedDeallocate) throughout the pool's lifetime;
// on a pool used through Allocate/Deallocate it releases only the
// fully-free blocks whose chunks it finds in address order in the free
// list, so it may keep blocks that are entirely free.
// It reports whether any block was released.
func (p *Pool) ReleaseMemory() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releaseMemoryLocked()
}

func (p *Pool) releaseMemoryLocked() bool {
	released := false
	var prevBlock podPtr
	var cursor unsafe.Pointer
	cur := p.blocks.head
	for cur.valid() {
		next := cur.next()
		n := cur.elementSize() / p.chunkSize
		if slot, ok := p.storage.findContiguousRun(&cursor, cur.ptr, n, p.chunkSize); ok {
			lastChunk := unsafe.Pointer(uintptr(cur.ptr) + uintptr((n-1)*p.chunkSize))
			setNextOf(slot, nextOf(lastChunk))
			if !prevBlock.valid() {
				p.blocks.head = next
			} else {
				prevBlock.setNext(next)
			}
			p.sys.Deallocate(cur.ptr, cur.size)
			log.Debug().Int64("chunks", n).Msg("released block")
			released = true
			cur = next
			continue
		}
		prevBlock = cur
		cur = next
	}
	p.nextSize = p.startSize
	return released
}

// PurgeMemory unconditionally returns every block to the SystemAllocator,
// regardless of how many of their chunks are still outstanding. Chunks
// handed out before a purge must not be used or deallocated afterward.
func (p *Pool) PurgeMemory() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.purgeMemoryLocked()
}

func (p *Pool) purgeMemoryLocked() bool {
	if p.blocks.empty() {
		return false
	}
	for cur := p.blocks.head; cur.valid(); {
		next := cur.next()
		p.sys.Deallocate(cur.ptr, cur.size)
		cur = next
	}
	p.blocks = blockList{}
	p.storage = segregatedStorage{}
	p.nextSize = p.startSize
	return true
}

// Close purges all outstanding blocks. It is safe, but not required,
// to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purgeMemoryLocked()
	return nil
}

// Stats reports a snapshot of the pool's current bookkeeping state.
// FreeChunks walks the free list and costs O(free chunks).
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	var blocks int64
	for cur := p.blocks.head; cur.valid(); cur = cur.next() {
		blocks++
	}
	var free int64
	for slot := unsafe.Pointer(&p.storage.first); nextOf(slot) != nil; slot = nextOf(slot) {
		free++
	}
	return Stats{
		Blocks:     blocks,
		FreeChunks: free,
		NextSize:   p.nextSize,
		StartSize:  p.startSize,
		MaxSize:    p.maxSize,
	}
}

// checkForeignChunk panics with ErrForeignChunk in non-release builds if
// chunk was not handed out by p. See precondition_debug.go.
func checkForeignChunk(p *Pool, chunk unsafe.Pointer) {
	precondition(func() bool { return p.isFromLocked(chunk) }, ErrForeignChunk)
}
