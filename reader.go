// Package kvdb implements a reader and writer for the KVDB binary
// key-value database format: an alignment-sensitive, endian-aware,
// pointer-graph container holding a root hash table whose entries may be
// leaf values, nested hash tables, or container nodes representing
// hierarchical key prefixes.
package kvdb

import (
	"encoding/binary"
	"os"
)

// Reader is an immutable view over a KVDB byte buffer. A Reader performs
// no I/O after construction; all of its hash-table and item handles borrow
// from the same backing buffer.
type Reader struct {
	buf    []byte
	order  binary.ByteOrder
	header header
}

// Open parses data as a KVDB file image.
func Open(data []byte) (*Reader, error) {
	h, swapped, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	return &Reader{
		buf:    data,
		order:  byteOrder(swapped),
		header: h,
	}, nil
}

// OpenFile reads path into memory and parses it as a KVDB file image.
func OpenFile(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IoError{Path: path, Cause: err}
	}
	return Open(data)
}

// RootTable returns the reader's root hash table.
func (r *Reader) RootTable() (*HashTable, error) {
	region, err := dereference(r.buf, r.header.Root, 4)
	if err != nil {
		return nil, err
	}
	return newHashTable(r.buf, r.order, region)
}

// IsByteSwapped reports whether the file's multi-byte fields (other than
// pointers) are stored big-endian.
func (r *Reader) IsByteSwapped() bool {
	return r.order == binary.BigEndian
}

// Bytes returns the reader's backing buffer.
func (r *Reader) Bytes() []byte {
	return r.buf
}
