// Package writer provides low-level file-layout allocation shared by the
// KVDB writer's chunk assembler.
//
// The Allocator hands out end-of-file regions, optionally aligned, and
// tracks them for overlap validation during tests.
package writer

import (
	"fmt"
	"sort"

	"github.com/scigolib/kvdb/internal/utils"
)

// AllocatedBlock tracks one allocated region of the output file.
type AllocatedBlock struct {
	Offset uint64
	Size   uint64
}

// Allocator manages end-of-file space allocation: every call extends the
// file, nothing is ever reclaimed or reused, matching the format's
// append-only write model.
type Allocator struct {
	blocks     []AllocatedBlock
	nextOffset uint64
}

// NewAllocator creates an Allocator whose first allocation starts at
// initialOffset (typically the size of a fixed file header).
func NewAllocator(initialOffset uint64) *Allocator {
	return &Allocator{
		blocks:     make([]AllocatedBlock, 0, 16),
		nextOffset: initialOffset,
	}
}

// Allocate reserves size bytes at the current end of file.
func (a *Allocator) Allocate(size uint64) (uint64, error) {
	return a.AllocateAligned(size, 1)
}

// AllocateAligned reserves size bytes at the next offset that is a
// multiple of alignment, padding the gap as unused space.
func (a *Allocator) AllocateAligned(size uint64, alignment uint32) (uint64, error) {
	if size == 0 {
		return 0, fmt.Errorf("cannot allocate zero bytes")
	}

	addr := utils.AlignUp(a.nextOffset, alignment)
	a.blocks = append(a.blocks, AllocatedBlock{Offset: addr, Size: size})
	a.nextOffset = addr + size
	return addr, nil
}

// IsAllocated reports whether [offset, offset+size) overlaps any
// previously allocated block.
func (a *Allocator) IsAllocated(offset, size uint64) bool {
	if size == 0 {
		return false
	}
	rangeEnd := offset + size
	for _, block := range a.blocks {
		blockEnd := block.Offset + block.Size
		if offset < blockEnd && block.Offset < rangeEnd {
			return true
		}
	}
	return false
}

// EndOfFile returns the address the next allocation would start at
// (before alignment padding).
func (a *Allocator) EndOfFile() uint64 {
	return a.nextOffset
}

// Blocks returns a copy of all allocated blocks, sorted by offset.
func (a *Allocator) Blocks() []AllocatedBlock {
	blocks := make([]AllocatedBlock, len(a.blocks))
	copy(blocks, a.blocks)
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Offset < blocks[j].Offset
	})
	return blocks
}

// ValidateNoOverlaps checks that no allocated blocks overlap, which would
// indicate an allocator bug rather than a valid file layout.
func (a *Allocator) ValidateNoOverlaps() error {
	blocks := a.Blocks()
	for i := 0; i < len(blocks)-1; i++ {
		current := blocks[i]
		next := blocks[i+1]
		currentEnd := current.Offset + current.Size
		if currentEnd > next.Offset {
			return fmt.Errorf("overlap detected: block at %d (size %d) overlaps block at %d",
				current.Offset, current.Size, next.Offset)
		}
	}
	return nil
}
