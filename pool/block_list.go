package pool

import "unsafe"

// podPtr is the Go analogue of boost::pool's PODptr: a plain (pointer,
// size) pair describing one block obtained from a SystemAllocator. A
// block's own last trailerSize bytes are not part of its usable chunk
// space; they store the size and address of the NEXT block in the
// chain, not of the block itself - podPtr carries its own size as a
// value (handed down from whoever constructed it), and only consults
// its trailer to learn what follows it. The zero podPtr (ptr == nil)
// represents the end of the list.
type podPtr struct {
	ptr  unsafe.Pointer
	size int64
}

func (p podPtr) valid() bool {
	return p.ptr != nil
}

// trailer field offsets, relative to p.ptr: the size field occupies
// the last trailerSize bytes, and within that the next-block pointer
// occupies the final MinAllocSize bytes.
func (p podPtr) sizeFieldAddr() unsafe.Pointer {
	return unsafe.Pointer(uintptr(p.ptr) + uintptr(p.size) - uintptr(trailerSize))
}

func (p podPtr) ptrFieldAddr() unsafe.Pointer {
	return unsafe.Pointer(uintptr(p.ptr) + uintptr(p.size) - uintptr(MinAllocSize))
}

func (p podPtr) nextSize() int64 {
	return *(*int64)(p.sizeFieldAddr())
}

func (p podPtr) setNextSize(n int64) {
	*(*int64)(p.sizeFieldAddr()) = n
}

func (p podPtr) nextPtr() unsafe.Pointer {
	return *(*unsafe.Pointer)(p.ptrFieldAddr())
}

func (p podPtr) setNextPtr(next unsafe.Pointer) {
	*(*unsafe.Pointer)(p.ptrFieldAddr()) = next
}

// next reads this block's trailer and returns the podPtr describing
// the next block in the chain.
func (p podPtr) next() podPtr {
	return podPtr{ptr: p.nextPtr(), size: p.nextSize()}
}

func (p podPtr) setNext(n podPtr) {
	p.setNextPtr(n.ptr)
	p.setNextSize(n.size)
}

// elementSize is the number of usable bytes in the block: its total
// size minus the trailer.
func (p podPtr) elementSize() int64 {
	return p.size - trailerSize
}

// blockList is a singly linked list of podPtrs, threaded through the
// blocks' own trailers, in the order Pool chose to insert them: either
// most-recently-grown-first (unordered pools) or address-ascending
// (ordered pools, to support releaseMemory's lockstep sweep).
type blockList struct {
	head podPtr
}

func (b *blockList) empty() bool {
	return !b.head.valid()
}

// prepend inserts blk as the new head. Not order-preserving.
func (b *blockList) prepend(blk podPtr) {
	blk.setNext(b.head)
	b.head = blk
}

// spliceOrdered inserts blk at the position its address belongs,
// keeping an address-ordered list ordered.
func (b *blockList) spliceOrdered(blk podPtr) {
	if !b.head.valid() || uintptr(blk.ptr) < uintptr(b.head.ptr) {
		b.prepend(blk)
		return
	}
	prev := b.head
	for {
		next := prev.next()
		if !next.valid() || uintptr(blk.ptr) < uintptr(next.ptr) {
			blk.setNext(next)
			prev.setNext(blk)
			return
		}
		prev = next
	}
}
