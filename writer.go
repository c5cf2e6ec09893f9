package kvdb

import (
	"encoding/binary"
	"sort"

	internalwriter "github.com/scigolib/kvdb/internal/writer"
)

// chunk is one allocated, positioned region of the output file.
type chunk struct {
	pointer Pointer
	data    []byte
}

// assembler is the writer's chunk allocator: it hands out 4-byte-aligned,
// 8-byte-aligned, or byte-aligned regions on demand via an Allocator, and
// later lowers every chunk into one contiguous byte buffer.
type assembler struct {
	alloc  *internalwriter.Allocator
	chunks []chunk
	order  binary.ByteOrder
	swap   bool
}

func newAssembler(order binary.ByteOrder, swap bool) *assembler {
	a := &assembler{alloc: internalwriter.NewAllocator(0), order: order, swap: swap}
	// Reserve the 24-byte header placeholder at offset 0.
	a.allocate(make([]byte, headerSize), 1)
	return a
}

// allocate aligns the running offset up to alignment, records data as a
// chunk at the resulting position, and returns its Pointer. The returned
// chunk retains a reference to data, so callers may keep mutating data's
// contents after this call returns (used to fill in hash-table item
// records after the table region itself has been allocated).
func (a *assembler) allocate(data []byte, alignment uint32) Pointer {
	if len(data) == 0 {
		// A childless container or other empty payload needs no backing
		// bytes; NullPointer already decodes to a zero-length region.
		return NullPointer
	}
	start, err := a.alloc.AllocateAligned(uint64(len(data)), alignment)
	if err != nil {
		panic(err)
	}
	end := start + uint64(len(data))
	p := Pointer{Start: uint32(start), End: uint32(end)}
	a.chunks = append(a.chunks, chunk{pointer: p, data: data})
	return p
}

// finalize lowers every recorded chunk into one zero-padded byte buffer and
// patches the header placeholder with root.
func (a *assembler) finalize(root Pointer) []byte {
	buf := make([]byte, a.alloc.EndOfFile())
	for _, c := range a.chunks {
		copy(buf[c.pointer.Start:c.pointer.End], c.data)
	}
	writeHeader(buf[0:headerSize], a.swap, root)
	return buf
}

// Writer lowers a Builder tree into a serialized KVDB byte image.
type Writer struct {
	order binary.ByteOrder
	swap  bool
}

// NewWriter creates a Writer that emits multi-byte fields (other than
// pointers, which are always little-endian) in the given byte order.
func NewWriter(order binary.ByteOrder) *Writer {
	return &Writer{order: order, swap: order == binary.BigEndian}
}

// Emit serializes b into a complete KVDB byte image.
func (w *Writer) Emit(b *Builder) ([]byte, error) {
	asm := newAssembler(w.order, w.swap)
	root, err := w.emitTable(asm, b)
	if err != nil {
		return nil, err
	}
	return asm.finalize(root), nil
}

// resolvedItem is a builder item annotated with its assigned index within
// the table currently being emitted.
type resolvedItem struct {
	*builderItem
	assignedIndex uint32
}

// emitTable lowers one Builder (one hash table level) into the assembler,
// returning a pointer to its table region.
func (w *Writer) emitTable(asm *assembler, b *Builder) (Pointer, error) {
	keys := b.keys()
	n := uint32(len(keys))
	nBuckets := n
	if nBuckets == 0 {
		nBuckets = 1
	}

	// Group sorted keys by bucket, preserving sorted order within a
	// bucket's chain, then assign sequential indices bucket-then-chain.
	byBucket := make([][]string, nBuckets)
	for _, k := range keys {
		bucket := hashKey(k) % nBuckets
		byBucket[bucket] = append(byBucket[bucket], k)
	}

	resolved := make(map[string]*resolvedItem, n)
	ordered := make([]*resolvedItem, 0, n)
	bucketStart := make([]uint32, nBuckets)
	var idx uint32
	for bucket := uint32(0); bucket < nBuckets; bucket++ {
		bucketStart[bucket] = idx
		for _, k := range byBucket[bucket] {
			ri := &resolvedItem{builderItem: b.items[k], assignedIndex: idx}
			resolved[k] = ri
			ordered = append(ordered, ri)
			idx++
		}
	}

	headerBytes := hashTableHeaderSize
	tableSize := headerBytes + int(nBuckets)*4 + int(n)*itemSize
	tableData := make([]byte, tableSize)
	tablePointer := asm.allocate(tableData, 4)

	// Header: n_bloom_words packed with bloom_shift=0 in the low/high bits;
	// this writer always emits zero bloom words (see DESIGN.md).
	asm.order.PutUint32(tableData[0:4], 0)
	asm.order.PutUint32(tableData[4:8], nBuckets)
	for bucket := uint32(0); bucket < nBuckets; bucket++ {
		off := headerBytes + int(bucket)*4
		asm.order.PutUint32(tableData[off:off+4], bucketStart[bucket])
	}

	itemsOff := headerBytes + int(nBuckets)*4
	for _, ri := range ordered {
		parentIndex := uint32(noParent)
		suffix := ri.key
		if ri.parentKey != "" {
			parent, ok := resolved[ri.parentKey]
			if !ok {
				return Pointer{}, newConsistencyError("missing parent " + ri.parentKey + " for " + ri.key)
			}
			parentIndex = parent.assignedIndex
			suffix = ri.key[len(ri.parentKey):]
		}
		if suffix == "" {
			return Pointer{}, newConsistencyError("empty key suffix for " + ri.key)
		}

		keyPointer := asm.allocate([]byte(suffix), 1)

		var valuePointer Pointer
		var itemType ItemType
		switch ri.kind {
		case kindValue:
			data, err := ri.value.encode(asm.order)
			if err != nil {
				return Pointer{}, err
			}
			valuePointer = asm.allocate(data, 8)
			itemType = ItemTypeValue
		case kindHashTable:
			p, err := w.emitTable(asm, ri.subtable)
			if err != nil {
				return Pointer{}, err
			}
			valuePointer = p
			itemType = ItemTypeHashTable
		case kindContainer:
			children := append([]string(nil), ri.children...)
			sort.Strings(children)
			childData := make([]byte, len(children)*4)
			for i, c := range children {
				childResolved, ok := resolved[c]
				if !ok {
					return Pointer{}, newConsistencyError("container " + ri.key + " references missing child " + c)
				}
				// Container child indices are always little-endian,
				// independent of the table's own byte order (same
				// exception as pointers).
				binary.LittleEndian.PutUint32(childData[i*4:i*4+4], childResolved.assignedIndex)
			}
			valuePointer = asm.allocate(childData, 4)
			itemType = ItemTypeContainer
		}

		item := Item{
			HashValue: ri.hash,
			Parent:    parentIndex,
			KeyStart:  keyPointer.Start,
			KeySize:   uint16(keyPointer.Size()),
			Type:      itemType,
			Value:     valuePointer,
		}
		off := itemsOff + int(ri.assignedIndex)*itemSize
		item.encode(tableData[off:off+itemSize], asm.order)
	}

	return tablePointer, nil
}
