package kvdb

import (
	"encoding/binary"

	"github.com/scigolib/kvdb/internal/utils"
)

// pointerSize is the on-disk size of a Pointer: two little-endian u32 words.
const pointerSize = 8

// Pointer identifies a byte range [Start, End) within a KVDB file. Pointers
// are always stored little-endian regardless of the file's own endianness.
type Pointer struct {
	Start uint32
	End   uint32
}

// NullPointer is the zero pointer, used to mark "no value" regions.
var NullPointer = Pointer{Start: 0, End: 0}

// Size returns End-Start, saturating to 0 rather than underflowing when the
// pointer is malformed (Start > End). A malformed pointer is caught by
// dereference's bounds check; Size itself never panics.
func (p Pointer) Size() uint32 {
	return uint32(utils.SatSub(uint64(p.End), uint64(p.Start)))
}

func (p Pointer) IsNull() bool {
	return p.Start == 0 && p.End == 0
}

func decodePointer(b []byte) Pointer {
	return Pointer{
		Start: binary.LittleEndian.Uint32(b[0:4]),
		End:   binary.LittleEndian.Uint32(b[4:8]),
	}
}

func (p Pointer) encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], p.Start)
	binary.LittleEndian.PutUint32(dst[4:8], p.End)
}

// dereference returns the sub-slice of buf described by p, requiring
// p.Start to be a multiple of alignment and the region to lie within buf.
func dereference(buf []byte, p Pointer, alignment uint32) ([]byte, error) {
	start, end := uint64(p.Start), uint64(p.End)
	if err := utils.CheckRegion(start, end, uint64(len(buf))); err != nil {
		return nil, ErrDataOffset
	}
	if err := utils.CheckAligned(start, alignment); err != nil {
		return nil, ErrDataAlignment
	}
	return buf[start:end], nil
}
