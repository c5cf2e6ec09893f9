package kvdb

import "encoding/binary"

const hashTableHeaderSize = 8

// HashTable is a read-only view of one hash-table region in a KVDB file:
// its header, bloom filter, bucket index, and item records. It borrows its
// bytes from the Reader that produced it and performs no further I/O.
type HashTable struct {
	buf        []byte // the entire file buffer
	order      binary.ByteOrder
	nBloomWords uint32
	bloomShift  uint32
	nBuckets    uint32
	bloom       []byte // nBloomWords*4 bytes, within buf
	buckets     []byte // nBuckets*4 bytes, within buf
	items       []byte // nItems*itemSize bytes, within buf
	nItems      uint32
}

// newHashTable parses the table header, bloom section, bucket section, and
// item section out of region, validating that the section sizes are
// internally consistent.
func newHashTable(buf []byte, order binary.ByteOrder, region []byte) (*HashTable, error) {
	if len(region) < hashTableHeaderSize {
		return nil, newDataError("hash table region too small for header")
	}
	packed := order.Uint32(region[0:4])
	nBloomWords := packed & ((1 << 27) - 1)
	bloomShift := packed >> 27
	nBuckets := order.Uint32(region[4:8])

	off := hashTableHeaderSize
	bloomLen := int(nBloomWords) * 4
	if off+bloomLen > len(region) {
		return nil, newDataError("bloom section exceeds table region")
	}
	bloom := region[off : off+bloomLen]
	off += bloomLen

	bucketLen := int(nBuckets) * 4
	if off+bucketLen > len(region) {
		return nil, newDataError("bucket section exceeds table region")
	}
	buckets := region[off : off+bucketLen]
	off += bucketLen

	itemBytes := region[off:]
	if len(itemBytes)%itemSize != 0 {
		return nil, newDataError("item section is not a multiple of item size")
	}

	return &HashTable{
		buf:         buf,
		order:       order,
		nBloomWords: nBloomWords,
		bloomShift:  bloomShift,
		nBuckets:    nBuckets,
		bloom:       bloom,
		buckets:     buckets,
		items:       itemBytes,
		nItems:      uint32(len(itemBytes) / itemSize),
	}, nil
}

// NumItems returns the number of item records in this table.
func (t *HashTable) NumItems() int {
	return int(t.nItems)
}

func (t *HashTable) itemAt(index uint32) (Item, error) {
	if index >= t.nItems {
		return Item{}, newDataError("item index out of range")
	}
	off := int(index) * itemSize
	return parseItem(t.items[off:off+itemSize], t.order)
}

// bloomFilter reports whether hash h might be present. false is
// authoritative (never a false negative); true requires verification.
func (t *HashTable) bloomFilter(h uint32) bool {
	if t.nBloomWords == 0 {
		return true
	}
	word := (h / 32) % t.nBloomWords
	mask := (uint32(1) << (h & 31)) | (uint32(1) << ((h >> t.bloomShift) & 31))
	wordVal := t.order.Uint32(t.bloom[word*4 : word*4+4])
	return wordVal&mask == mask
}

func (t *HashTable) bucketRange(bucket uint32) (start, end uint32) {
	start = t.order.Uint32(t.buckets[bucket*4 : bucket*4+4])
	if bucket+1 < t.nBuckets {
		end = t.order.Uint32(t.buckets[(bucket+1)*4 : (bucket+1)*4+4])
	} else {
		end = t.nItems
	}
	if end > t.nItems {
		end = t.nItems
	}
	return start, end
}

// keySuffix returns the raw key suffix bytes stored for item it.
func (t *HashTable) keySuffix(it Item) ([]byte, error) {
	start := uint64(it.KeyStart)
	end := start + uint64(it.KeySize)
	if end > uint64(len(t.buf)) {
		return nil, ErrDataOffset
	}
	return t.buf[start:end], nil
}

// verifyFullKey checks whether candidate item it's reconstructed full key
// equals key by walking the parent chain. A stored suffix may be empty, so
// a step does not always shorten the remaining key; instead the walk visits
// at most nItems+1 items and reports a longer chain as a parent loop.
func (t *HashTable) verifyFullKey(it Item, key string) (bool, error) {
	remaining := key
	cur := it
	for hops := uint32(0); ; hops++ {
		if hops > t.nItems {
			return false, newDataError("parent loop during key verification")
		}
		suffix, err := t.keySuffix(cur)
		if err != nil {
			return false, err
		}
		if len(suffix) > len(remaining) {
			return false, nil
		}
		if string(remaining[len(remaining)-len(suffix):]) != string(suffix) {
			return false, nil
		}
		remaining = remaining[:len(remaining)-len(suffix)]

		if !cur.hasParent() {
			return remaining == "", nil
		}
		if cur.Parent >= t.nItems {
			return false, nil
		}
		cur, err = t.itemAt(cur.Parent)
		if err != nil {
			return false, err
		}
	}
}

// GetItem looks up key and returns its raw item record.
func (t *HashTable) GetItem(key string) (Item, error) {
	h := hashKey(key)
	if !t.bloomFilter(h) {
		return Item{}, newKeyNotFoundError(key)
	}
	if t.nBuckets == 0 {
		return Item{}, newKeyNotFoundError(key)
	}
	bucket := h % t.nBuckets
	start, end := t.bucketRange(bucket)
	for i := start; i < end; i++ {
		it, err := t.itemAt(i)
		if err != nil {
			return Item{}, err
		}
		if it.HashValue != h {
			continue
		}
		ok, err := t.verifyFullKey(it, key)
		if err != nil {
			return Item{}, err
		}
		if ok {
			return it, nil
		}
	}
	return Item{}, newKeyNotFoundError(key)
}

// GetTable looks up key and returns the nested hash table stored there.
func (t *HashTable) GetTable(key string) (*HashTable, error) {
	it, err := t.GetItem(key)
	if err != nil {
		return nil, err
	}
	if it.Type != ItemTypeHashTable {
		return nil, newDataError("expected HashTable item, got " + it.Type.String())
	}
	region, err := dereference(t.buf, it.Value, 4)
	if err != nil {
		return nil, err
	}
	return newHashTable(t.buf, t.order, region)
}

// GetValueBytes looks up key and returns the raw bytes of its Value leaf
// payload (aligned to 8, per the variant codec's alignment requirement).
func (t *HashTable) GetValueBytes(key string) ([]byte, error) {
	it, err := t.GetItem(key)
	if err != nil {
		return nil, err
	}
	if it.Type != ItemTypeValue {
		return nil, newDataError("expected Value item, got " + it.Type.String())
	}
	return dereference(t.buf, it.Value, 8)
}

// containerChildren decodes a Container item's payload: a tightly packed
// array of child item indices, always little-endian regardless of the
// table's own byte order (same exception as pointers).
func (t *HashTable) containerChildren(it Item) ([]uint32, error) {
	region, err := dereference(t.buf, it.Value, 4)
	if err != nil {
		return nil, err
	}
	if len(region)%4 != 0 {
		return nil, newDataError("container payload is not a multiple of 4 bytes")
	}
	n := len(region) / 4
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		idx := binary.LittleEndian.Uint32(region[i*4 : i*4+4])
		if idx >= t.nItems {
			return nil, newDataError("container child index out of range")
		}
		out[i] = idx
	}
	return out, nil
}

// Keys enumerates every full key in the table via the fixed-point
// resolution algorithm: repeatedly scan all items, resolving any whose
// parent is root or already resolved, until a pass makes no progress.
func (t *HashTable) Keys() ([]string, error) {
	n := t.nItems
	resolved := make([]bool, n)
	fullKey := make([]string, n)

	items := make([]Item, n)
	for i := uint32(0); i < n; i++ {
		it, err := t.itemAt(i)
		if err != nil {
			return nil, err
		}
		items[i] = it
	}

	remaining := int(n)
	for remaining > 0 {
		progressed := false
		for i := uint32(0); i < n; i++ {
			if resolved[i] {
				continue
			}
			it := items[i]
			suffix, err := t.keySuffix(it)
			if err != nil {
				return nil, err
			}
			if !it.hasParent() {
				fullKey[i] = string(suffix)
				resolved[i] = true
				progressed = true
				remaining--
				continue
			}
			if it.Parent >= n {
				return nil, newDataError("parent with invalid offset")
			}
			if resolved[it.Parent] {
				fullKey[i] = fullKey[it.Parent] + string(suffix)
				resolved[i] = true
				progressed = true
				remaining--
			}
		}
		if !progressed {
			return nil, newDataError("parent loop")
		}
	}

	keys := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		keys = append(keys, fullKey[i])
	}
	return keys, nil
}
