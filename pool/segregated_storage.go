package pool

import "unsafe"

// segregatedStorage controls a free list of fixed-size chunks threaded
// through the chunks' own bytes: the first machine word of a free chunk
// holds the address of the next free chunk (or nil for the last one).
// It is empty if its free list is empty, and ordered if repeated calls
// to allocate() would yield a strictly increasing address sequence. A
// method is order-preserving if it keeps an ordered list ordered.
type segregatedStorage struct {
	first unsafe.Pointer
}

func (s *segregatedStorage) empty() bool {
	return s.first == nil
}

// nextOf and setNextOf treat an address as a "slot": a location holding
// another address. Every free chunk is a slot (its first word holds the
// next free chunk's address); &segregatedStorage.first is also treated
// as a slot, so the list head can be walked with the same code that
// walks the chunks themselves.
func nextOf(slot unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(slot)
}

func setNextOf(slot, next unsafe.Pointer) {
	*(*unsafe.Pointer)(slot) = next
}

// segregate threads a free list through [block, block+size), sliced
// into partitionSize-sized chunks, with the last chunk pointing at end.
// It returns the new head (== block). Handles size == partitionSize (a
// single-chunk region) as a special case. Order-preserving: the chunks
// are linked in ascending address order from block to the last chunk,
// which points at end.
func segregate(block unsafe.Pointer, size, partitionSize int64, end unsafe.Pointer) unsafe.Pointer {
	// old ends up pointing at the last valid chunk; the division then
	// multiplication keeps old == block + partitionSize*i even when
	// size isn't an exact multiple of partitionSize.
	shift := ((size - partitionSize) / partitionSize) * partitionSize
	old := unsafe.Pointer(uintptr(block) + uintptr(shift))
	setNextOf(old, end)

	if old == block {
		return block
	}

	for iter := uintptr(old) - uintptr(partitionSize); iter != uintptr(block); iter -= uintptr(partitionSize) {
		p := unsafe.Pointer(iter)
		setNextOf(p, old)
		old = p
	}
	setNextOf(block, old)
	return block
}

// addBlock prepends a freshly segregated region to the free list. Not
// order-preserving.
func (s *segregatedStorage) addBlock(block unsafe.Pointer, size, partitionSize int64) {
	s.first = segregate(block, size, partitionSize, s.first)
}

// addOrderedBlock splices a freshly segregated region into the ordered
// free list at the position its address belongs. Order-preserving.
func (s *segregatedStorage) addOrderedBlock(block unsafe.Pointer, size, partitionSize int64) {
	loc := s.findPrev(block)
	if loc == nil {
		s.addBlock(block, size, partitionSize)
		return
	}
	setNextOf(loc, segregate(block, size, partitionSize, nextOf(loc)))
}

// allocate pops and returns the head of the free list. Undefined if the
// list is empty; callers must check empty() first.
func (s *segregatedStorage) allocate() unsafe.Pointer {
	precondition(func() bool { return !s.empty() }, ErrEmpty)
	ret := s.first
	s.first = nextOf(ret)
	return ret
}

// deallocate prepends chunk to the free list. Not order-preserving.
func (s *segregatedStorage) deallocate(chunk unsafe.Pointer) {
	setNextOf(chunk, s.first)
	s.first = chunk
}

// orderedDeallocate inserts chunk into the free list at the position
// its address belongs. Order-preserving.
func (s *segregatedStorage) orderedDeallocate(chunk unsafe.Pointer) {
	loc := s.findPrev(chunk)
	if loc == nil {
		s.deallocate(chunk)
		return
	}
	setNextOf(chunk, nextOf(loc))
	setNextOf(loc, chunk)
}

// allocateN scans the free list for n chunks whose addresses are each
// exactly partitionSize bytes apart. On success it unlinks all n and
// returns the first; on failure it returns nil. Order-preserving.
// O(len(free list)); only useful on an ordered list, since a run can
// only be contiguous in the list if it is also contiguous in memory.
func (s *segregatedStorage) allocateN(n, partitionSize int64) unsafe.Pointer {
	if n == 0 {
		return nil
	}
	start := unsafe.Pointer(&s.first)
	for {
		if nextOf(start) == nil {
			return nil
		}
		if last, ok := tryAllocateN(&start, n, partitionSize); ok {
			ret := nextOf(start)
			setNextOf(start, nextOf(last))
			return ret
		}
	}
}

// tryAllocateN attempts to find n contiguous chunks starting right
// after *startp. On success it returns the last chunk of that run and
// true. On failure it rewrites *startp to the last chunk it considered,
// so the caller can resume scanning from there, and returns false.
func tryAllocateN(startp *unsafe.Pointer, n, partitionSize int64) (unsafe.Pointer, bool) {
	iter := nextOf(*startp)
	for {
		n--
		if n == 0 {
			return iter, true
		}
		next := nextOf(iter)
		if next == nil || uintptr(next) != uintptr(iter)+uintptr(partitionSize) {
			*startp = iter
			return nil, false
		}
		iter = next
	}
}

// deallocateN reinserts n contiguous chunks via addBlock.
func (s *segregatedStorage) deallocateN(chunks unsafe.Pointer, n, partitionSize int64) {
	if n == 0 {
		return
	}
	s.addBlock(chunks, n*partitionSize, partitionSize)
}

// orderedDeallocateN reinserts n contiguous chunks via addOrderedBlock.
func (s *segregatedStorage) orderedDeallocateN(chunks unsafe.Pointer, n, partitionSize int64) {
	if n == 0 {
		return
	}
	s.addOrderedBlock(chunks, n*partitionSize, partitionSize)
}

// findContiguousRun reports whether the free list contains, starting
// exactly at blockStart, n chunks of chunkSize bytes each at
// contiguous addresses. On success it returns the slot (either a free
// chunk or &s.first) whose next pointer leads into the run, so the
// caller can excise it with a single setNextOf.
//
// cursor lets a caller sweeping several blocks in ascending address
// order resume the search where the previous call left off, instead of
// rescanning the free list from the head every time: it is read as the
// slot to start searching from (nil meaning "start at the head") and
// written with the slot the search ended at, whether or not this call
// found a run. Since both the free list and (in ordered mode) the
// sweep's block order are address-ascending, the cursor only ever
// moves forward, making a full sweep of b blocks against a free list of
// f chunks O(b+f) instead of O(b*f).
func (s *segregatedStorage) findContiguousRun(cursor *unsafe.Pointer, blockStart unsafe.Pointer, n, chunkSize int64) (slot unsafe.Pointer, ok bool) {
	prevSlot := *cursor
	if prevSlot == nil {
		prevSlot = unsafe.Pointer(&s.first)
	}
	cur := nextOf(prevSlot)
	for {
		if cur == blockStart {
			break
		}
		if cur == nil || uintptr(cur) > uintptr(blockStart) {
			*cursor = prevSlot
			return nil, false
		}
		prevSlot = cur
		cur = nextOf(prevSlot)
	}
	iter := cur
	for i := int64(1); i < n; i++ {
		next := nextOf(iter)
		if next == nil || uintptr(next) != uintptr(iter)+uintptr(chunkSize) {
			*cursor = prevSlot
			return nil, false
		}
		iter = next
	}
	*cursor = prevSlot
	return prevSlot, true
}

// findPrev returns the free-list node immediately before where ptr
// would be inserted to keep the list ordered, or nil if ptr belongs at
// the head.
func (s *segregatedStorage) findPrev(ptr unsafe.Pointer) unsafe.Pointer {
	if s.first == nil || uintptr(s.first) > uintptr(ptr) {
		return nil
	}
	iter := s.first
	for {
		next := nextOf(iter)
		if next == nil || uintptr(next) > uintptr(ptr) {
			return iter
		}
		iter = next
	}
}
