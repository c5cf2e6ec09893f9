package kvdb

import "encoding/binary"

// headerSize is the fixed on-disk size of the file header.
const headerSize = 24

// signature0 and signature1 are the two little-endian u32 words that spell
// "GVariant" in native byte order.
const (
	signature0 uint32 = 1918981703 // "GVar"
	signature1 uint32 = 1953390953 // "iant"
)

// header is the 24-byte file header: signature, version, options, and the
// root table pointer.
type header struct {
	Version uint32
	Options uint32
	Root    Pointer
}

// parseHeader validates the 24-byte header at the start of buf and reports
// whether the file is byte-swapped relative to the host's chosen read
// order (i.e. relative to binary.LittleEndian, since this format always
// writes the signature itself in the file's own endianness).
func parseHeader(buf []byte) (header header, swapped bool, err error) {
	if len(buf) < headerSize {
		return header, false, ErrDataOffset
	}

	sigLE0 := binary.LittleEndian.Uint32(buf[0:4])
	sigLE1 := binary.LittleEndian.Uint32(buf[4:8])
	sigBE0 := binary.BigEndian.Uint32(buf[0:4])
	sigBE1 := binary.BigEndian.Uint32(buf[4:8])

	switch {
	case sigLE0 == signature0 && sigLE1 == signature1:
		swapped = false
	case sigBE0 == signature0 && sigBE1 == signature1:
		swapped = true
	default:
		return header, false, newDataError("invalid signature")
	}

	order := byteOrder(swapped)
	header.Version = order.Uint32(buf[8:12])
	if header.Version != 0 {
		return header, false, newDataError("unsupported version")
	}
	header.Options = order.Uint32(buf[12:16])
	header.Root = decodePointer(buf[16:24])

	return header, swapped, nil
}

// writeHeader encodes a 24-byte header into dst (len(dst) must be >= 24).
func writeHeader(dst []byte, swapped bool, root Pointer) {
	order := byteOrder(swapped)
	order.PutUint32(dst[0:4], signature0)
	order.PutUint32(dst[4:8], signature1)
	order.PutUint32(dst[8:12], 0) // version
	order.PutUint32(dst[12:16], 0) // options
	root.encode(dst[16:24])
}

// byteOrder returns the binary.ByteOrder implied by a file's byteswap flag:
// swapped files store signature words in big-endian order (from a
// little-endian host's perspective, i.e. native-to-the-file is reversed).
func byteOrder(swapped bool) binary.ByteOrder {
	if swapped {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
