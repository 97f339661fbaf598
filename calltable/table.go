// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calltable

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

// ErrGrowExceedsMax is returned by Grow when growing by the requested
// number of elements would exceed the table's declared maximum.
var ErrGrowExceedsMax = errors.New("calltable: grow would exceed table maximum")

// ErrShrinkBelowMin is returned by Shrink when shrinking by the
// requested number of elements would drop the table below its declared
// minimum.
var ErrShrinkBelowMin = errors.New("calltable: shrink would drop below table minimum")

// slot is the physical, directly-indexable representation of one table
// entry: a type tag (for call_indirect's signature check) and the
// resolved native entry point. Zero value means "unset" (TypeTag == 0,
// CodePointer == 0), which call_indirect's lowering treats as an
// out-of-bounds/uninitialized-element trap.
type slot struct {
	TypeTag     uint64
	CodePointer uint64
}

const slotSize = int(unsafe.Sizeof(slot{}))

// reserveElements bounds the virtual memory reservation to 2^32
// elements — enough that every 32-bit table index is inside the
// reservation, so the table never moves as it grows. call_indirect
// still range-checks the index against the element count.
// At slotSize bytes per element this reserves 64GiB of address space;
// it costs no physical memory since pages are only committed on Grow.
const reserveElements = 1 << 32

// Table is one bytecode table instance: an indirect-call jump table
// backed by committed-on-demand virtual memory.
type Table struct {
	mu sync.Mutex

	region mmap.MMap // the full reservation, uncommitted beyond committedBytes
	n      uint32    // logical number of elements
	min    uint32
	max    uint32 // 0 means unbounded up to reserveElements

	committedBytes int
	closed         bool
}

// NewTable reserves address space for a table whose size may range from
// min to max elements (max == 0 means unbounded, capped only by
// reserveElements) and grows it to min elements.
func NewTable(min, max uint32) (*Table, error) {
	region, err := mmap.MapRegion(nil, reserveElements*slotSize, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.Mprotect(region, unix.PROT_NONE); err != nil {
		region.Unmap()
		return nil, err
	}
	t := &Table{region: region, min: min, max: max}
	registry.add(t)
	if _, err := t.Grow(min); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func (t *Table) pageAlign(bytes int) int {
	const pageSize = 4096
	return (bytes + pageSize - 1) &^ (pageSize - 1)
}

// GetNumElements reports the table's current logical size.
func (t *Table) GetNumElements() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// BaseAddress returns the address of slot 0, for the jit package to bake
// into call_indirect's generated address arithmetic. The returned
// pointer remains valid for the table's lifetime: growth only commits
// further pages within the same reservation, never relocates it.
func (t *Table) BaseAddress() uintptr {
	return uintptr(unsafe.Pointer(&t.region[0]))
}

// SetElement stores a (typeTag, codePointer) pair at index, which must
// be < GetNumElements(). Returns the previous contents.
func (t *Table) SetElement(index uint32, typeTag, codePointer uint64) (prevTypeTag, prevCodePointer uint64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index >= t.n {
		return 0, 0, errors.New("calltable: index out of range")
	}
	s := t.slotAt(index)
	prevTypeTag, prevCodePointer = s.TypeTag, s.CodePointer
	s.TypeTag = typeTag
	s.CodePointer = codePointer
	return prevTypeTag, prevCodePointer, nil
}

// Element reads back the (typeTag, codePointer) pair at index.
func (t *Table) Element(index uint32) (typeTag, codePointer uint64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index >= t.n {
		return 0, 0, errors.New("calltable: index out of range")
	}
	s := t.slotAt(index)
	return s.TypeTag, s.CodePointer, nil
}

func (t *Table) slotAt(index uint32) *slot {
	base := unsafe.Pointer(&t.region[0])
	return (*slot)(unsafe.Pointer(uintptr(base) + uintptr(index)*uintptr(slotSize)))
}

// Grow commits numNew additional slots (zero-initialized, matching the
// reference implementation's growTable appending nullptr elements) and
// returns the table's size before growing. Growing by zero is a
// no-op fast path that still reports the current size, per the original
// implementation's growTable(table, 0) behavior.
func (t *Table) Grow(numNew uint32) (previous uint32, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	previous = t.n
	if numNew == 0 {
		return previous, nil
	}
	if t.max != 0 && (numNew > t.max || t.n > t.max-numNew) {
		return 0, ErrGrowExceedsMax
	}
	newCommitted := t.pageAlign(int(t.n+numNew) * slotSize)
	if newCommitted != t.committedBytes {
		grown := t.region[t.committedBytes:newCommitted]
		if err := unix.Mprotect(grown, unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return 0, err
		}
		t.committedBytes = newCommitted
	}
	t.n += numNew
	logger.Printf("grew table to %d elements (%d bytes committed)", t.n, t.committedBytes)
	return previous, nil
}

// Shrink decommits slots off the end of the table and returns the size
// before shrinking.
func (t *Table) Shrink(numRemove uint32) (previous uint32, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	previous = t.n
	if numRemove == 0 {
		return previous, nil
	}
	if numRemove > t.n || t.n-numRemove < t.min {
		return 0, ErrShrinkBelowMin
	}
	t.n -= numRemove
	newCommitted := t.pageAlign(int(t.n) * slotSize)
	if newCommitted != t.committedBytes {
		shrunk := t.region[newCommitted:t.committedBytes]
		if err := unix.Mprotect(shrunk, unix.PROT_NONE); err != nil {
			return 0, err
		}
		_ = unix.Madvise(shrunk, unix.MADV_DONTNEED)
		t.committedBytes = newCommitted
	}
	logger.Printf("shrank table to %d elements (%d bytes committed)", t.n, t.committedBytes)
	return previous, nil
}

// Close decommits the table's committed pages and releases its
// reservation. Idempotent: closing an already-closed table is a no-op,
// matching the original implementation's destructor being safe to run
// once the table's elements are already empty.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	registry.remove(t)
	return t.region.Unmap()
}
